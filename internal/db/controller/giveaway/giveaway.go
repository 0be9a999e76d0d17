// Package giveaway provides CRUD operations and winner drawing for giveaways.
package giveaway

import (
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	messageQueryPattern  = "message_id = ?"
	giveawayQueryPattern = "giveaway_id = ?"
	dueQueryPattern      = "ended = ? AND ends_at <= ?"
)

var (
	// ErrGiveawayNotFound is returned when a giveaway is not found.
	ErrGiveawayNotFound = errors.New("giveaway not found")
	// ErrGiveawayEnded is returned when entering or ending an already ended giveaway.
	ErrGiveawayEnded = errors.New("giveaway already ended")
	// ErrAlreadyEntered is returned when a member enters a giveaway twice.
	ErrAlreadyEntered = errors.New("already entered this giveaway")
	// ErrPrizeEmpty is returned when creating a giveaway without a prize.
	ErrPrizeEmpty = errors.New("giveaway prize cannot be empty")
	// ErrWinnerCountInvalid is returned when the winner count is below one.
	ErrWinnerCountInvalid = errors.New("winner count must be at least one")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create starts a new giveaway record. The message id is attached separately
// once the giveaway message has been posted.
func Create(db *gorm.DB, guildID, channelID, hostID, prize string, winnerCount int, endsAt time.Time) (*models.Giveaway, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if prize == "" {
		return nil, ErrPrizeEmpty
	}
	if winnerCount < 1 {
		return nil, ErrWinnerCountInvalid
	}

	giveaway := &models.Giveaway{
		GuildID:     guildID,
		ChannelID:   channelID,
		HostID:      hostID,
		Prize:       prize,
		WinnerCount: winnerCount,
		EndsAt:      endsAt,
	}

	result := db.Create(giveaway)
	if result.Error != nil {
		return nil, result.Error
	}

	return giveaway, nil
}

// SetMessage attaches the posted giveaway message to the record.
func SetMessage(db *gorm.DB, id uint64, messageID string) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.Giveaway{}).Where("id = ?", id).Update("message_id", messageID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGiveawayNotFound
	}

	return nil
}

// Get retrieves a giveaway by id.
func Get(db *gorm.DB, id uint64) (*models.Giveaway, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var giveaway models.Giveaway
	result := db.First(&giveaway, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrGiveawayNotFound
		}
		return nil, result.Error
	}

	return &giveaway, nil
}

// GetByMessage retrieves a giveaway by its message id.
func GetByMessage(db *gorm.DB, messageID string) (*models.Giveaway, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var giveaway models.Giveaway
	result := db.Where(messageQueryPattern, messageID).First(&giveaway)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrGiveawayNotFound
		}
		return nil, result.Error
	}

	return &giveaway, nil
}

// Enter adds a member to a running giveaway.
func Enter(db *gorm.DB, giveawayID uint64, userID string) error {
	giveaway, err := Get(db, giveawayID)
	if err != nil {
		return err
	}
	if giveaway.Ended {
		return ErrGiveawayEnded
	}

	var existing models.GiveawayEntry
	result := db.Where(giveawayQueryPattern+" AND user_id = ?", giveawayID, userID).First(&existing)
	if result.Error == nil {
		return ErrAlreadyEntered
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	result = db.Create(&models.GiveawayEntry{GiveawayID: giveawayID, UserID: userID})

	return result.Error
}

// Entries returns all entries of a giveaway.
func Entries(db *gorm.DB, giveawayID uint64) ([]models.GiveawayEntry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var entries []models.GiveawayEntry
	result := db.Where(giveawayQueryPattern, giveawayID).Order("id ASC").Find(&entries)
	if result.Error != nil {
		return nil, result.Error
	}

	return entries, nil
}

// ListDue returns running giveaways whose end time has passed.
func ListDue(db *gorm.DB, now time.Time) ([]models.Giveaway, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var due []models.Giveaway
	result := db.Where(dueQueryPattern, false, now).Find(&due)
	if result.Error != nil {
		return nil, result.Error
	}

	return due, nil
}

// CountActive returns how many giveaways are still running in a guild.
func CountActive(db *gorm.DB, guildID string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	result := db.Model(&models.Giveaway{}).
		Where("guild_id = ? AND ended = ?", guildID, false).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// End marks a giveaway as ended.
func End(db *gorm.DB, id uint64) error {
	giveaway, err := Get(db, id)
	if err != nil {
		return err
	}
	if giveaway.Ended {
		return ErrGiveawayEnded
	}

	giveaway.Ended = true
	result := db.Save(giveaway)

	return result.Error
}

// Draw picks up to count distinct winners from the entries using the given
// random source. Fewer entries than count means everyone wins.
func Draw(entries []models.GiveawayEntry, count int, rng *rand.Rand) []string {
	if count < 1 || len(entries) == 0 {
		return nil
	}

	pool := make([]string, len(entries))
	for i, entry := range entries {
		pool[i] = entry.UserID
	}

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if count > len(pool) {
		count = len(pool)
	}

	return pool[:count]
}
