package economy

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Member{}))

	return db
}

func setupService(t *testing.T) *Service {
	t.Helper()

	return &Service{cfg: &config.Config{}, db: setupTestDB(t)}
}

func TestWaitString(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "hours", d: 2 * time.Hour, want: "2 hours"},
		{name: "single hour", d: time.Hour, want: "1 hour"},
		{name: "minutes", d: 59 * time.Minute, want: "59 minutes"},
		{name: "single minute", d: 61 * time.Second, want: "1 minute"},
		{name: "seconds", d: 45 * time.Second, want: "45 seconds"},
		{name: "single second", d: time.Second, want: "1 second"},
		{name: "zero", d: 0, want: "0 seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, waitString(tt.d))
		})
	}
}

func TestWorkMessagesFormat(t *testing.T) {
	require.Len(t, workMessages, 15)

	for _, msg := range workMessages {
		assert.Equal(t, 1, strings.Count(msg, "%d"), msg)
		assert.True(t, strings.HasSuffix(msg, "coins."), msg)
	}
}

func TestCatalog(t *testing.T) {
	require.Len(t, catalog, 5)

	item := findItem("BGL")
	require.NotNil(t, item)
	assert.Equal(t, int64(13000), item.Price)
	assert.Equal(t, "1 BGL - Blue Gem Lock", item.Description)

	assert.Nil(t, findItem("unknown item"))
}

func TestItemAt(t *testing.T) {
	idx, item := itemAt("2")
	require.NotNil(t, item)
	assert.Equal(t, 2, idx)
	assert.Equal(t, "Discord Nitro", item.Name)

	for _, raw := range []string{"-1", "5", "abc", ""} {
		_, item := itemAt(raw)
		assert.Nil(t, item, raw)
	}
}

func TestShopButtons(t *testing.T) {
	components := shopButtons("100000000000000001")

	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, len(catalog))

	first, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "BGL - 13,000 coins", first.Label)
	assert.Equal(t, "shop:item:0:100000000000000001", first.CustomID)
	assert.Equal(t, discordgo.SecondaryButton, first.Style)
}

func TestPurchase(t *testing.T) {
	h := setupService(t)

	_, err := member.AddCoins(h.db, "g1", "u1", "tester", 20000)
	require.NoError(t, err)

	ok, msg, balance := h.purchase(nil, "g1", "u1", "tester", findItem("BGL"))

	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, int64(7000), balance)

	rec, err := member.Get(h.db, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), rec.Coins)
}

func TestPurchaseInsufficientFunds(t *testing.T) {
	h := setupService(t)

	_, err := member.AddCoins(h.db, "g1", "u1", "tester", 100)
	require.NoError(t, err)

	ok, msg, _ := h.purchase(nil, "g1", "u1", "tester", findItem("BGL"))

	assert.False(t, ok)
	assert.Equal(t, "You don't have enough coins. You have 100 coins, but BGL costs 13,000 coins.", msg)

	rec, err := member.Get(h.db, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.Coins, "a failed purchase never debits")
}

func TestPurchaseEmbeds(t *testing.T) {
	item := findItem("Discord Nitro")
	require.NotNil(t, item)

	success := purchaseSuccessEmbed(item, 1800)
	assert.Equal(t, "✅ Purchase Successful!", success.Title)
	assert.Equal(t, "You have purchased 🚀 Discord Nitro!", success.Description)
	assert.Equal(t, item.Color, success.Color)
	require.Len(t, success.Fields, 3)
	assert.Equal(t, "8,200 coins", success.Fields[0].Value)
	assert.Equal(t, "1,800 coins", success.Fields[1].Value)

	failed := purchaseFailedEmbed("nope")
	assert.Equal(t, "❌ Purchase Failed", failed.Title)
	assert.Equal(t, "nope", failed.Description)
}

func TestMemberLabel(t *testing.T) {
	assert.Equal(t, "tester", memberLabel("tester", "u1"))
	assert.Equal(t, "<@u1>", memberLabel("", "u1"))
}
