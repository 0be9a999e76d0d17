// Package giveaways implements timed giveaways: starting them, collecting
// entries through a button, drawing winners and announcing results.
package giveaways

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/giveaway"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// CmdGStart starts a new giveaway.
	CmdGStart = "gstart"
	// CmdGEnd ends a running giveaway early.
	CmdGEnd = "gend"
	// CmdGReroll draws new winners for a finished giveaway.
	CmdGReroll = "greroll"

	// ComponentID routes the enter button back to this package.
	ComponentID = "giveaway:enter"

	// checkInterval is how often Watch looks for due giveaways.
	checkInterval = time.Minute
)

// Service is the giveaways handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the giveaways handler.
var Handler = Service{}

// Init initializes the giveaways handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db

	minOne := float64(1)

	commands := []*handler.Command{
		{
			Name:        CmdGStart,
			Description: "Start a new giveaway",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prize",
					Description: "What are you giving away?",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "duration",
					Description: "How long the giveaway lasts, in hours",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "winners",
					Description: "Number of winners",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to host the giveaway in, defaults to this one",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
					},
				},
			},
			Run: h.gstart,
		},
		{
			Name:        CmdGEnd,
			Description: "End a giveaway immediately",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "ID of the giveaway to end",
					Required:    true,
					MinValue:    &minOne,
				},
			},
			Run: h.gend,
		},
		{
			Name:        CmdGReroll,
			Description: "Reroll a giveaway to select new winners",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "ID of the giveaway to reroll",
					Required:    true,
					MinValue:    &minOne,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "winners",
					Description: "Number of new winners, defaults to 1",
					MinValue:    &minOne,
				},
			},
			Run: h.greroll,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}

	if err := reg.AddComponent(ComponentID, h.enter); err != nil {
		log.Fatal().Err(err).Msg("failed to register giveaway enter route")
	}
}

// Watch periodically ends giveaways whose end time has passed. It blocks
// until the context is cancelled and is meant to run in its own goroutine.
func (h *Service) Watch(ctx context.Context, s *discordgo.Session) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			due, err := giveaway.ListDue(h.db, now)
			if err != nil {
				log.Error().Err(err).Msg("failed to list due giveaways")
				continue
			}

			for idx := range due {
				record := due[idx]
				log.Info().Uint64("giveaway", record.ID).Msg("giveaway has ended, processing it")
				if err := h.finish(s, &record, false); err != nil && !errors.Is(err, giveaway.ErrGiveawayEnded) {
					log.Error().Err(err).Uint64("giveaway", record.ID).Msg("failed to end giveaway")
				}
			}
		}
	}
}

func (h *Service) gstart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	prize := opts.String("prize")
	hours := opts.Int("duration")
	winners := int(opts.Int("winners"))
	if winners < 1 {
		winners = 1
	}

	channelID := opts.ChannelID("channel")
	if channelID == "" {
		channelID = i.ChannelID
	}

	hostID := handler.CallerID(i)
	endsAt := time.Now().Add(time.Duration(hours) * time.Hour)

	record, err := giveaway.Create(h.db, i.GuildID, channelID, hostID, prize, winners, endsAt)
	if err != nil {
		log.Error().Err(err).Str("prize", prize).Msg("failed to create giveaway")
		handler.RespondEphemeral(s, i, "An error occurred while creating the giveaway. Please try again later.")
		return
	}

	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{startEmbed(record)},
		Components: []discordgo.MessageComponent{enterRow()},
	})
	if err != nil {
		log.Error().Err(err).Uint64("giveaway", record.ID).Str("channel", channelID).Msg("failed to post giveaway message")
		if endErr := giveaway.End(h.db, record.ID); endErr != nil {
			log.Error().Err(endErr).Uint64("giveaway", record.ID).Msg("failed to retire unposted giveaway")
		}
		handler.RespondEphemeral(s, i, "An error occurred while creating the giveaway. Please try again later.")
		return
	}

	if err := giveaway.SetMessage(h.db, record.ID, msg.ID); err != nil {
		log.Error().Err(err).Uint64("giveaway", record.ID).Msg("failed to attach giveaway message")
	}

	handler.RespondEphemeral(s, i, fmt.Sprintf(
		"Giveaway created successfully in <#%s>!\nPrize: **%s**\nDuration: %d hours\nWinners: %d\nGiveaway ID: `%d`",
		channelID, prize, hours, winners, record.ID))
}

func (h *Service) gend(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id := uint64(handler.Options(i).Int("id"))

	record, err := giveaway.Get(h.db, id)
	if err != nil || record.Ended {
		handler.RespondEphemeral(s, i, fmt.Sprintf("No active giveaway found with ID: %d", id))
		return
	}

	if err := h.finish(s, record, true); err != nil {
		if errors.Is(err, giveaway.ErrGiveawayEnded) {
			handler.RespondEphemeral(s, i, fmt.Sprintf("No active giveaway found with ID: %d", id))
			return
		}

		log.Error().Err(err).Uint64("giveaway", id).Msg("failed to end giveaway")
		handler.RespondEphemeral(s, i, fmt.Sprintf("Failed to end giveaway %d.", id))
		return
	}

	handler.RespondEphemeral(s, i, fmt.Sprintf("Giveaway %d has been ended.", id))
}

func (h *Service) greroll(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	id := uint64(opts.Int("id"))
	count := 1
	if opts.Has("winners") {
		count = int(opts.Int("winners"))
		if count < 1 {
			count = 1
		}
	}

	record, err := giveaway.Get(h.db, id)
	if err != nil {
		handler.RespondEphemeral(s, i, fmt.Sprintf("No giveaway found with ID: %d", id))
		return
	}

	entries, err := giveaway.Entries(h.db, id)
	if err != nil {
		log.Error().Err(err).Uint64("giveaway", id).Msg("failed to load giveaway entries")
		handler.RespondEphemeral(s, i, fmt.Sprintf("Failed to reroll giveaway %d.", id))
		return
	}
	if len(entries) == 0 {
		handler.RespondEphemeral(s, i, "No participants found to reroll.")
		return
	}

	winners := giveaway.Draw(entries, count, newRNG())

	if _, err := s.ChannelMessageSend(record.ChannelID, rerollAnnouncement(record.Prize, winners)); err != nil {
		log.Error().Err(err).Uint64("giveaway", id).Msg("failed to announce reroll")
		handler.RespondEphemeral(s, i, fmt.Sprintf("Failed to reroll giveaway %d.", id))
		return
	}

	handler.RespondEphemeral(s, i, fmt.Sprintf(
		"Successfully rerolled giveaway %d with %d new winner%s.", id, len(winners), plural(len(winners))))
}

// enter handles the giveaway button.
func (h *Service) enter(s *discordgo.Session, i *discordgo.InteractionCreate) {
	messageID := ""
	if i.Message != nil {
		messageID = i.Message.ID
	}

	handler.RespondEphemeral(s, i, h.entryReply(messageID, handler.CallerID(i)))
}

// entryReply records the entry and returns the reply text for the member.
func (h *Service) entryReply(messageID, userID string) string {
	record, err := giveaway.GetByMessage(h.db, messageID)
	if err != nil {
		if !errors.Is(err, giveaway.ErrGiveawayNotFound) {
			log.Error().Err(err).Str("message", messageID).Msg("failed to look up giveaway")
		}
		return "This giveaway no longer exists or has ended."
	}
	if record.Ended {
		return "This giveaway no longer exists or has ended."
	}

	switch err := giveaway.Enter(h.db, record.ID, userID); {
	case err == nil:
		return "You have entered the giveaway! Good luck! 🍀"
	case errors.Is(err, giveaway.ErrAlreadyEntered):
		return "You have already entered this giveaway!"
	case errors.Is(err, giveaway.ErrGiveawayEnded), errors.Is(err, giveaway.ErrGiveawayNotFound):
		return "This giveaway no longer exists or has ended."
	default:
		log.Error().Err(err).Uint64("giveaway", record.ID).Str("user", userID).Msg("failed to enter giveaway")
		return "This giveaway no longer exists or has ended."
	}
}

// finish ends a giveaway, updates its message and announces the outcome.
// Marking the record ended first keeps a manual gend and the Watch loop
// from both announcing the same giveaway.
func (h *Service) finish(s *discordgo.Session, record *models.Giveaway, forced bool) error {
	if err := giveaway.End(h.db, record.ID); err != nil {
		return err
	}

	entries, err := giveaway.Entries(h.db, record.ID)
	if err != nil {
		return err
	}

	winners := giveaway.Draw(entries, record.WinnerCount, newRNG())

	edit := &discordgo.MessageEdit{
		Channel:    record.ChannelID,
		ID:         record.MessageID,
		Embeds:     &[]*discordgo.MessageEmbed{endedEmbed(record, winners, forced)},
		Components: &[]discordgo.MessageComponent{},
	}
	if _, err := s.ChannelMessageEditComplex(edit); err != nil {
		log.Warn().Err(err).Uint64("giveaway", record.ID).Msg("failed to update giveaway message")
		return nil
	}

	if _, err := s.ChannelMessageSend(record.ChannelID, endAnnouncement(record, winners)); err != nil {
		log.Warn().Err(err).Uint64("giveaway", record.ID).Msg("failed to announce giveaway result")
	}

	return nil
}

// startEmbed builds the giveaway message posted when a giveaway starts.
func startEmbed(record *models.Giveaway) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🎉 GIVEAWAY 🎉",
		Description: fmt.Sprintf(
			"**%s**\n\nClick the 🎁 button to enter!\n\nHosted by: <@%s>\nWinners: %d\nEnds: <t:%d:R>",
			record.Prize, record.HostID, record.WinnerCount, record.EndsAt.Unix()),
		Color:     handler.ColorGreen,
		Timestamp: record.EndsAt.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Giveaway ID: %d | Ends at", record.ID),
		},
	}
}

// endedEmbed builds the replacement embed for a finished giveaway.
func endedEmbed(record *models.Giveaway, winners []string, forced bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "🎉 GIVEAWAY ENDED 🎉",
		Timestamp: record.EndsAt.Format(time.RFC3339),
	}

	if len(winners) == 0 {
		embed.Color = handler.ColorRed
		embed.Description = fmt.Sprintf(
			"**%s**\n\nNo one entered the giveaway!\n\nHosted by: <@%s>", record.Prize, record.HostID)
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Giveaway ID: %d | Ends at", record.ID),
		}

		return embed
	}

	embed.Color = handler.ColorGold
	embed.Description = fmt.Sprintf(
		"**%s**\n\nWinner%s: %s\n\nHosted by: <@%s>\n",
		record.Prize, plural(len(winners)), mentionList(winners), record.HostID)

	footer := fmt.Sprintf("Giveaway ID: %d | Ended at", record.ID)
	if forced {
		footer = fmt.Sprintf("Giveaway ID: %d | Ended early by admin", record.ID)
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}

	return embed
}

// endAnnouncement builds the channel message sent when a giveaway finishes.
func endAnnouncement(record *models.Giveaway, winners []string) string {
	if len(winners) == 0 {
		return fmt.Sprintf("🎉 The giveaway for **%s** has ended, but no one entered!", record.Prize)
	}

	return fmt.Sprintf(
		"🎉 **GIVEAWAY ENDED!** 🎉\n\nPrize: **%s**\nWinner%s: %s\nHosted by: <@%s>\n\nCongratulations!",
		record.Prize, plural(len(winners)), mentionList(winners), record.HostID)
}

// rerollAnnouncement builds the channel message for freshly drawn winners.
func rerollAnnouncement(prize string, winners []string) string {
	return fmt.Sprintf(
		"🎉 **GIVEAWAY REROLL!** 🎉\n\nNew winner%s for **%s**: %s\nCongratulations!",
		plural(len(winners)), prize, mentionList(winners))
}

func enterRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Enter Giveaway",
				Style:    discordgo.PrimaryButton,
				Emoji:    &discordgo.ComponentEmoji{Name: "🎁"},
				CustomID: ComponentID,
			},
		},
	}
}

func mentionList(userIDs []string) string {
	mentions := make([]string, len(userIDs))
	for i, id := range userIDs {
		mentions[i] = "<@" + id + ">"
	}

	return strings.Join(mentions, ", ")
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}

	return ""
}

func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
