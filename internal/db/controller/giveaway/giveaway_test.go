package giveaway

import (
	"math/rand"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Giveaway{}, &models.GiveawayEntry{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func createTestGiveaway(t *testing.T, db *gorm.DB, endsAt time.Time) *models.Giveaway {
	t.Helper()

	giveaway, err := Create(db, "g1", "c1", "host-1", "Nitro", 2, endsAt)
	require.NoError(t, err, "failed to create test giveaway")

	return giveaway
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	endsAt := time.Now().Add(time.Hour)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		prize         string
		winnerCount   int
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			prize:         "Nitro",
			winnerCount:   1,
			expectedError: ErrDBNil,
		},
		{
			name:          "empty prize",
			dbParam:       db,
			prize:         "",
			winnerCount:   1,
			expectedError: ErrPrizeEmpty,
		},
		{
			name:          "zero winners",
			dbParam:       db,
			prize:         "Nitro",
			winnerCount:   0,
			expectedError: ErrWinnerCountInvalid,
		},
		{
			name:        "successful create",
			dbParam:     db,
			prize:       "Nitro",
			winnerCount: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			giveaway, err := Create(tc.dbParam, "g1", "c1", "host-1", tc.prize, tc.winnerCount, endsAt)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, giveaway)
			} else {
				require.NoError(t, err)
				require.NotNil(t, giveaway)
				assert.False(t, giveaway.Ended)
				assert.Equal(t, 3, giveaway.WinnerCount)
			}
		})
	}
}

func TestSetMessageAndGetByMessage(t *testing.T) {
	db := setupTestDB(t)
	giveaway := createTestGiveaway(t, db, time.Now().Add(time.Hour))

	require.NoError(t, SetMessage(db, giveaway.ID, "msg-42"))

	found, err := GetByMessage(db, "msg-42")
	require.NoError(t, err)
	assert.Equal(t, giveaway.ID, found.ID)

	_, err = GetByMessage(db, "msg-missing")
	require.ErrorIs(t, err, ErrGiveawayNotFound)

	require.ErrorIs(t, SetMessage(db, 9999, "msg-1"), ErrGiveawayNotFound)
}

func TestEnter(t *testing.T) {
	db := setupTestDB(t)
	giveaway := createTestGiveaway(t, db, time.Now().Add(time.Hour))

	require.NoError(t, Enter(db, giveaway.ID, "u1"))
	require.ErrorIs(t, Enter(db, giveaway.ID, "u1"), ErrAlreadyEntered)
	require.NoError(t, Enter(db, giveaway.ID, "u2"))

	entries, err := Entries(db, giveaway.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, End(db, giveaway.ID))
	require.ErrorIs(t, Enter(db, giveaway.ID, "u3"), ErrGiveawayEnded)

	require.ErrorIs(t, Enter(db, 9999, "u1"), ErrGiveawayNotFound)
}

func TestListDueAndEnd(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	overdue := createTestGiveaway(t, db, now.Add(-time.Minute))
	createTestGiveaway(t, db, now.Add(time.Hour)) // still running, must not be listed

	due, err := ListDue(db, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, overdue.ID, due[0].ID)

	require.NoError(t, End(db, overdue.ID))
	require.ErrorIs(t, End(db, overdue.ID), ErrGiveawayEnded)

	// Ended giveaways drop out of the due list.
	due, err = ListDue(db, now)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestCountActive(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	first := createTestGiveaway(t, db, now.Add(time.Hour))
	createTestGiveaway(t, db, now.Add(2*time.Hour))

	count, err := CountActive(db, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, End(db, first.ID))

	count, err = CountActive(db, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = CountActive(db, "other")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDraw(t *testing.T) {
	entries := []models.GiveawayEntry{
		{GiveawayID: 1, UserID: "u1"},
		{GiveawayID: 1, UserID: "u2"},
		{GiveawayID: 1, UserID: "u3"},
		{GiveawayID: 1, UserID: "u4"},
	}

	t.Run("deterministic with a seeded source", func(t *testing.T) {
		first := Draw(entries, 2, rand.New(rand.NewSource(7)))
		second := Draw(entries, 2, rand.New(rand.NewSource(7)))

		assert.Equal(t, first, second)
		assert.Len(t, first, 2)
	})

	t.Run("winners are distinct entrants", func(t *testing.T) {
		winners := Draw(entries, 3, rand.New(rand.NewSource(1)))

		require.Len(t, winners, 3)
		seen := map[string]bool{}
		for _, w := range winners {
			assert.False(t, seen[w], "winner %s drawn twice", w)
			seen[w] = true
		}
	})

	t.Run("fewer entries than winners", func(t *testing.T) {
		winners := Draw(entries[:1], 5, rand.New(rand.NewSource(1)))

		assert.Equal(t, []string{"u1"}, winners)
	})

	t.Run("no entries", func(t *testing.T) {
		assert.Nil(t, Draw(nil, 2, rand.New(rand.NewSource(1))))
	})
}
