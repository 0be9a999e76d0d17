// Package tickets implements private support ticket channels: opening them,
// greeting the member, closing with a transcript and cleaning the channel up.
package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/ticket"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// CmdTicket opens a new support ticket.
	CmdTicket = "ticket"
	// CmdCloseTicket closes the ticket behind the current channel.
	CmdCloseTicket = "closeticket"

	// deleteDelay is how long a closed ticket channel stays visible.
	deleteDelay = 10 * time.Second

	// historyPageSize is the Discord maximum for one channel history request.
	historyPageSize = 100

	transcriptDivider = "-------------- TRANSCRIPT --------------"
)

// Service is the tickets handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the tickets handler.
var Handler = Service{}

// Init initializes the tickets handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db

	commands := []*handler.Command{
		{
			Name:        CmdTicket,
			Description: "Create a support ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "subject",
					Description: "The subject of the ticket",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Detailed description of the issue",
					Required:    true,
				},
			},
			Run: h.open,
		},
		{
			Name:        CmdCloseTicket,
			Description: "Close a ticket channel (staff or ticket creator)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "The reason for closing the ticket",
				},
			},
			Run: h.close,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

func (h *Service) open(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)
	subject := opts.String("subject")
	description := opts.String("description")

	userID := handler.CallerID(i)
	userName := handler.CallerName(i)

	if existing := h.openTicketOf(i.GuildID, userID); existing != nil {
		handler.RespondEphemeral(s, i, fmt.Sprintf(
			"You already have an active ticket: <#%s>. Please use that ticket instead.", existing.ChannelID))
		return
	}

	number, err := ticket.Count(h.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to count tickets")
		h.openError(s, i)
		return
	}
	number++

	channel, err := s.GuildChannelCreateComplex(i.GuildID, discordgo.GuildChannelCreateData{
		Name:                 fmt.Sprintf("ticket-%s-%04d", userName, number),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Support ticket for %s (%s)", userName, userID),
		ParentID:             h.cfg.Discord.TicketCategoryID,
		PermissionOverwrites: h.overwrites(s, i.GuildID, userID),
	})
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to create ticket channel")
		h.openError(s, i)
		return
	}

	record, err := ticket.Open(h.db, i.GuildID, channel.ID, userID, subject)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to record ticket")
		if _, delErr := s.ChannelDelete(channel.ID); delErr != nil {
			log.Error().Err(delErr).Str("channel", channel.ID).Msg("failed to remove orphaned ticket channel")
		}
		h.openError(s, i)
		return
	}

	welcome, err := s.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Content: "<@" + userID + ">",
		Embeds:  []*discordgo.MessageEmbed{welcomeEmbed(record, subject, description, userID)},
	})
	if err != nil {
		log.Error().Err(err).Str("channel", channel.ID).Msg("failed to post ticket welcome message")
	} else if err := s.ChannelMessagePin(channel.ID, welcome.ID); err != nil {
		log.Warn().Err(err).Str("channel", channel.ID).Msg("failed to pin ticket welcome message")
	}

	h.logOpened(s, record, subject, userID)

	handler.RespondEphemeral(s, i, fmt.Sprintf("Your ticket has been created: <#%s>", channel.ID))
}

func (h *Service) close(s *discordgo.Session, i *discordgo.InteractionCreate) {
	reason := handler.Options(i).String("reason")
	if reason == "" {
		reason = "No reason provided"
	}

	record, err := ticket.GetByChannel(h.db, i.ChannelID)
	if err != nil || !record.Open {
		handler.RespondEphemeral(s, i, "This command can only be used in ticket channels.")
		return
	}

	closerID := handler.CallerID(i)
	if !h.mayClose(i, record, closerID) {
		handler.RespondEphemeral(s, i, "You don't have permission to close this ticket.")
		return
	}

	record, err = ticket.Close(h.db, i.ChannelID, closerID)
	if err != nil {
		log.Error().Err(err).Str("channel", i.ChannelID).Msg("failed to close ticket")
		handler.RespondEphemeral(s, i, "An error occurred while closing the ticket. Please try again later.")
		return
	}

	closerName := handler.CallerName(i)
	transcript := transcriptHeader(record, h.openerName(s, i.GuildID, record.OpenerID), closerName, reason) +
		transcriptLines(h.history(s, i.ChannelID))

	handler.RespondEmbed(s, i, closedEmbed(record, closerID, reason, h.cfg.Discord.TicketLogChannelID != ""))

	h.logClosed(s, record, closerID, reason, transcript)
	h.dmCloser(s, record, closerName, reason, h.guildName(s, i.GuildID))

	time.AfterFunc(deleteDelay, func() {
		auditReason := fmt.Sprintf("Ticket %s closed by %s", displayID(record.ID), closerName)
		if _, err := s.ChannelDelete(i.ChannelID, discordgo.WithAuditLogReason(auditReason)); err != nil {
			log.Error().Err(err).Str("channel", i.ChannelID).Msg("failed to delete ticket channel")
		}
	})
}

// openTicketOf returns the open ticket of a member, or nil.
func (h *Service) openTicketOf(guildID, userID string) *models.Ticket {
	open, err := ticket.ListOpen(h.db, guildID)
	if err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("failed to list open tickets")
		return nil
	}

	for idx := range open {
		if open[idx].OpenerID == userID {
			return &open[idx]
		}
	}

	return nil
}

// mayClose allows the opener, support role holders and administrators.
func (h *Service) mayClose(i *discordgo.InteractionCreate, record *models.Ticket, closerID string) bool {
	if closerID == record.OpenerID {
		return true
	}
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	if h.cfg.Discord.SupportRoleID != "" {
		for _, roleID := range i.Member.Roles {
			if roleID == h.cfg.Discord.SupportRoleID {
				return true
			}
		}
	}

	return false
}

// overwrites hides the channel from the guild and opens it to the member,
// the bot and the support role.
func (h *Service) overwrites(s *discordgo.Session, guildID, userID string) []*discordgo.PermissionOverwrite {
	memberAllow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages)

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// The @everyone role carries the guild id.
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		},
	}

	if s.State != nil && s.State.User != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    s.State.User.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		})
	}

	if h.cfg.Discord.SupportRoleID != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    h.cfg.Discord.SupportRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: memberAllow,
		})
	}

	return overwrites
}

func (h *Service) openError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handler.RespondEphemeral(s, i, "An error occurred while creating your ticket. Please try again later.")
}

func (h *Service) logOpened(s *discordgo.Session, record *models.Ticket, subject, userID string) {
	if h.cfg.Discord.TicketLogChannelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Ticket Created",
		Description: fmt.Sprintf("A new support ticket has been created by <@%s>", userID),
		Color:       handler.ColorGreen,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket ID", Value: displayID(record.ID), Inline: true},
			{Name: "Subject", Value: subject, Inline: true},
			{Name: "Channel", Value: "<#" + record.ChannelID + ">", Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "User ID: " + userID},
	}

	if _, err := s.ChannelMessageSendEmbed(h.cfg.Discord.TicketLogChannelID, embed); err != nil {
		log.Error().Err(err).Uint64("ticket", record.ID).Msg("failed to log ticket creation")
	}
}

func (h *Service) logClosed(s *discordgo.Session, record *models.Ticket, closerID, reason, transcript string) {
	if h.cfg.Discord.TicketLogChannelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Ticket Closed: " + displayID(record.ID),
		Description: fmt.Sprintf("Ticket closed by <@%s>", closerID),
		Color:       handler.ColorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: "<@" + record.OpenerID + ">", Inline: true},
			{Name: "Subject", Value: record.Subject, Inline: true},
			{Name: "Reason", Value: reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Ticket ID: " + displayID(record.ID)},
	}

	_, err := s.ChannelMessageSendComplex(h.cfg.Discord.TicketLogChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files: []*discordgo.File{
			{
				Name:        fmt.Sprintf("ticket-%s.txt", displayID(record.ID)),
				ContentType: "text/plain",
				Reader:      strings.NewReader(transcript),
			},
		},
	})
	if err != nil {
		log.Error().Err(err).Uint64("ticket", record.ID).Msg("failed to log ticket closure")
	}
}

// dmCloser tells the opener their ticket was closed.
func (h *Service) dmCloser(s *discordgo.Session, record *models.Ticket, closerName, reason, guildName string) {
	channel, err := s.UserChannelCreate(record.OpenerID)
	if err != nil {
		log.Error().Err(err).Str("user", record.OpenerID).Msg("failed to open DM channel for ticket closure")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Your Ticket Has Been Closed: " + displayID(record.ID),
		Description: fmt.Sprintf("Your support ticket in %s has been closed", guildName),
		Color:       handler.ColorBlue,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Subject", Value: record.Subject, Inline: true},
			{Name: "Closed By", Value: closerName, Inline: true},
			{Name: "Reason", Value: reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "If you need further assistance, please create a new ticket."},
	}

	if _, err := s.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		log.Error().Err(err).Str("user", record.OpenerID).Msg("failed to DM user about ticket closure")
	}
}

// history fetches the full channel history, oldest message first.
func (h *Service) history(s *discordgo.Session, channelID string) []*discordgo.Message {
	var all []*discordgo.Message
	before := ""

	for {
		page, err := s.ChannelMessages(channelID, historyPageSize, before, "", "")
		if err != nil {
			log.Error().Err(err).Str("channel", channelID).Msg("failed to fetch ticket history")
			break
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		before = page[len(page)-1].ID

		if len(page) < historyPageSize {
			break
		}
	}

	// Discord returns newest first.
	for left, right := 0, len(all)-1; left < right; left, right = left+1, right-1 {
		all[left], all[right] = all[right], all[left]
	}

	return all
}

func (h *Service) openerName(s *discordgo.Session, guildID, userID string) string {
	if member, err := s.State.Member(guildID, userID); err == nil && member.User != nil {
		return member.User.Username
	}
	if member, err := s.GuildMember(guildID, userID); err == nil && member.User != nil {
		return member.User.Username
	}

	return userID
}

func (h *Service) guildName(s *discordgo.Session, guildID string) string {
	if guild, err := s.State.Guild(guildID); err == nil && guild.Name != "" {
		return guild.Name
	}
	if guild, err := s.Guild(guildID); err == nil {
		return guild.Name
	}

	return "the server"
}

// welcomeEmbed builds the pinned greeting posted into a fresh ticket channel.
func welcomeEmbed(record *models.Ticket, subject, description, userID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Ticket: " + displayID(record.ID),
		Description: "Thank you for creating a support ticket. A staff member will assist you shortly.",
		Color:       handler.ColorBlue,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Subject", Value: subject},
			{Name: "Description", Value: description},
			{Name: "User", Value: "<@" + userID + ">", Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Ticket ID: " + displayID(record.ID)},
	}
}

// closedEmbed builds the in-channel closing notice.
func closedEmbed(record *models.Ticket, closerID, reason string, logged bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Ticket Closed: " + displayID(record.ID),
		Description: fmt.Sprintf("This ticket has been closed by <@%s>", closerID),
		Color:       handler.ColorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "This channel will be deleted in 10 seconds."},
	}

	if logged {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Transcript",
			Value: "A transcript has been saved and sent to the logs channel.",
		})
	}

	return embed
}

// transcriptHeader builds the metadata block at the top of a transcript.
func transcriptHeader(record *models.Ticket, openerName, closerName, reason string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticket ID: %s\n", displayID(record.ID))
	fmt.Fprintf(&b, "Subject: %s\n", record.Subject)
	fmt.Fprintf(&b, "User: %s\n", openerName)
	fmt.Fprintf(&b, "Created: %s\n", record.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Closed by: %s (%s)\n", closerName, record.ClosedBy)
	fmt.Fprintf(&b, "Reason: %s\n\n", reason)
	b.WriteString(transcriptDivider + "\n\n")

	return b.String()
}

// transcriptLines renders channel messages oldest first, one block per message.
func transcriptLines(messages []*discordgo.Message) string {
	var b strings.Builder

	for _, msg := range messages {
		author := "unknown"
		if msg.Author != nil {
			author = msg.Author.Username
		}

		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.Timestamp.Format(time.RFC3339), author, msg.Content)

		if len(msg.Attachments) > 0 {
			urls := make([]string, len(msg.Attachments))
			for i, attachment := range msg.Attachments {
				urls[i] = attachment.URL
			}
			fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(urls, ", "))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// displayID formats the ticket id shown to members.
func displayID(id uint64) string {
	return fmt.Sprintf("TICKET-%04d", id)
}
