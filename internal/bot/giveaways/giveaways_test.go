package giveaways

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/giveaway"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Giveaway{}, &models.GiveawayEntry{}))

	return db
}

func setupService(t *testing.T) *Service {
	t.Helper()

	return &Service{cfg: &config.Config{}, db: setupTestDB(t)}
}

func startTestGiveaway(t *testing.T, h *Service, messageID string) *models.Giveaway {
	t.Helper()

	record, err := giveaway.Create(h.db, "guild-1", "chan-1", "host-1", "Discord Nitro", 2, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, giveaway.SetMessage(h.db, record.ID, messageID))

	record.MessageID = messageID

	return record
}

func TestStartEmbed(t *testing.T) {
	endsAt := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	record := &models.Giveaway{
		ID:          7,
		Prize:       "Steam Gift Card 10$",
		HostID:      "42",
		WinnerCount: 1,
		EndsAt:      endsAt,
	}

	embed := startEmbed(record)

	assert.Equal(t, "🎉 GIVEAWAY 🎉", embed.Title)
	assert.Equal(t, fmt.Sprintf(
		"**Steam Gift Card 10$**\n\nClick the 🎁 button to enter!\n\nHosted by: <@42>\nWinners: 1\nEnds: <t:%d:R>",
		endsAt.Unix()), embed.Description)
	assert.Equal(t, 0x2ECC71, embed.Color)
	assert.Equal(t, "Giveaway ID: 7 | Ends at", embed.Footer.Text)
	assert.Equal(t, endsAt.Format(time.RFC3339), embed.Timestamp)
}

func TestEndedEmbedNoWinners(t *testing.T) {
	record := &models.Giveaway{ID: 3, Prize: "BGL", HostID: "42", EndsAt: time.Now()}

	embed := endedEmbed(record, nil, false)

	assert.Equal(t, "🎉 GIVEAWAY ENDED 🎉", embed.Title)
	assert.Equal(t, "**BGL**\n\nNo one entered the giveaway!\n\nHosted by: <@42>", embed.Description)
	assert.Equal(t, 0xE74C3C, embed.Color)
	assert.Equal(t, "Giveaway ID: 3 | Ends at", embed.Footer.Text)
}

func TestEndedEmbedWinners(t *testing.T) {
	record := &models.Giveaway{ID: 3, Prize: "BGL", HostID: "42", EndsAt: time.Now()}

	embed := endedEmbed(record, []string{"1", "2"}, false)

	assert.Equal(t, "**BGL**\n\nWinners: <@1>, <@2>\n\nHosted by: <@42>\n", embed.Description)
	assert.Equal(t, 0xF1C40F, embed.Color)
	assert.Equal(t, "Giveaway ID: 3 | Ended at", embed.Footer.Text)

	single := endedEmbed(record, []string{"1"}, false)
	assert.Equal(t, "**BGL**\n\nWinner: <@1>\n\nHosted by: <@42>\n", single.Description)
}

func TestEndedEmbedForcedFooter(t *testing.T) {
	record := &models.Giveaway{ID: 9, Prize: "BGL", HostID: "42", EndsAt: time.Now()}

	embed := endedEmbed(record, []string{"1"}, true)

	assert.Equal(t, "Giveaway ID: 9 | Ended early by admin", embed.Footer.Text)
}

func TestEndAnnouncement(t *testing.T) {
	record := &models.Giveaway{Prize: "BGL", HostID: "42"}

	assert.Equal(t,
		"🎉 The giveaway for **BGL** has ended, but no one entered!",
		endAnnouncement(record, nil))
	assert.Equal(t,
		"🎉 **GIVEAWAY ENDED!** 🎉\n\nPrize: **BGL**\nWinner: <@1>\nHosted by: <@42>\n\nCongratulations!",
		endAnnouncement(record, []string{"1"}))
	assert.Equal(t,
		"🎉 **GIVEAWAY ENDED!** 🎉\n\nPrize: **BGL**\nWinners: <@1>, <@2>\nHosted by: <@42>\n\nCongratulations!",
		endAnnouncement(record, []string{"1", "2"}))
}

func TestRerollAnnouncement(t *testing.T) {
	assert.Equal(t,
		"🎉 **GIVEAWAY REROLL!** 🎉\n\nNew winner for **BGL**: <@1>\nCongratulations!",
		rerollAnnouncement("BGL", []string{"1"}))
	assert.Equal(t,
		"🎉 **GIVEAWAY REROLL!** 🎉\n\nNew winners for **BGL**: <@1>, <@2>\nCongratulations!",
		rerollAnnouncement("BGL", []string{"1", "2"}))
}

func TestEntryReply(t *testing.T) {
	h := setupService(t)
	record := startTestGiveaway(t, h, "msg-1")

	assert.Equal(t, "You have entered the giveaway! Good luck! 🍀", h.entryReply("msg-1", "user-1"))
	assert.Equal(t, "You have already entered this giveaway!", h.entryReply("msg-1", "user-1"))
	assert.Equal(t, "You have entered the giveaway! Good luck! 🍀", h.entryReply("msg-1", "user-2"))

	entries, err := giveaway.Entries(h.db, record.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEntryReplyUnknownMessage(t *testing.T) {
	h := setupService(t)

	assert.Equal(t, "This giveaway no longer exists or has ended.", h.entryReply("missing", "user-1"))
}

func TestEntryReplyEndedGiveaway(t *testing.T) {
	h := setupService(t)
	record := startTestGiveaway(t, h, "msg-1")

	require.NoError(t, giveaway.End(h.db, record.ID))

	assert.Equal(t, "This giveaway no longer exists or has ended.", h.entryReply("msg-1", "user-1"))
}

func TestEnterRow(t *testing.T) {
	row := enterRow()

	require.Len(t, row.Components, 1)
	button, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)

	assert.Equal(t, "Enter Giveaway", button.Label)
	assert.Equal(t, discordgo.PrimaryButton, button.Style)
	assert.Equal(t, ComponentID, button.CustomID)
	require.NotNil(t, button.Emoji)
	assert.Equal(t, "🎁", button.Emoji.Name)
}

func TestMentionList(t *testing.T) {
	assert.Equal(t, "", mentionList(nil))
	assert.Equal(t, "<@1>", mentionList([]string{"1"}))
	assert.Equal(t, "<@1>, <@2>", mentionList([]string{"1", "2"}))
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "", plural(1))
	assert.Equal(t, "s", plural(2))
}
