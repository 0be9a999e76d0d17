// Package moderation implements the warning, kick, ban and timeout
// commands, escalating punishments as warnings accumulate.
package moderation

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/warning"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// CmdWarn issues a warning with optional expiry.
	CmdWarn = "warn"
	// CmdWarnings lists a member's active warnings.
	CmdWarnings = "warnings"
	// CmdUnwarn clears one or all of a member's warnings.
	CmdUnwarn = "unwarn"
	// CmdKick removes a member from the guild.
	CmdKick = "kick"
	// CmdBan bans a user, optionally for a limited time.
	CmdBan = "ban"
	// CmdUnban lifts a ban.
	CmdUnban = "unban"
	// CmdMute times a member out.
	CmdMute = "mute"
	// CmdUnmute lifts a timeout.
	CmdUnmute = "unmute"

	// DefaultWarnDuration is how long a warning stays active by default.
	DefaultWarnDuration = "30d"

	// banEscalationCount is the active warning count that triggers a ban.
	banEscalationCount = 4
	// timeoutEscalationCount is the count that triggers a one day timeout.
	timeoutEscalationCount = 3

	banDeleteMessageDays = 1

	warnDateFormat = "2006-01-02 15:04:05"
)

// Service is the moderation handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the moderation handler.
var Handler = Service{}

// Init initializes the moderation handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db

	userOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}
	}
	reasonOpt := func(required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the action",
			Required:    required,
		}
	}

	commands := []*handler.Command{
		{
			Name:        CmdWarn,
			Description: "Warn a user",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to warn"),
				reasonOpt(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long the warning stays on record (e.g. 30d)",
				},
			},
			Run: h.warn,
		},
		{
			Name:        CmdWarnings,
			Description: "Show warnings for a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("User to show warnings for")},
			Run:         h.warnings,
		},
		{
			Name:        CmdUnwarn,
			Description: "Clear one or all warnings for a user",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to clear warnings for"),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "Warning number from /warnings, clears all when omitted",
				},
			},
			Run: h.unwarn,
		},
		{
			Name:        CmdKick,
			Description: "Kick a user from the server",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to kick"),
				reasonOpt(true),
			},
			Run: h.kick,
		},
		{
			Name:        CmdBan,
			Description: "Ban a user from the server",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to ban"),
				reasonOpt(true),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "Ban duration (e.g. 1d, 2h, permanent)",
				},
			},
			Run: h.ban,
		},
		{
			Name:        CmdUnban,
			Description: "Lift a user's ban",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to unban"),
				reasonOpt(false),
			},
			Run: h.unban,
		},
		{
			Name:        CmdMute,
			Description: "Mute a user in the server using timeout",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to mute"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "Mute duration (e.g. 1d, 2h, 30m)",
					Required:    true,
				},
				reasonOpt(true),
			},
			Run: h.mute,
		},
		{
			Name:        CmdUnmute,
			Description: "Unmute a user (remove timeout)",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("User to unmute"),
				reasonOpt(false),
			},
			Run: h.unmute,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

func (h *Service) warn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")
	durRaw := opts.String("duration")
	if durRaw == "" {
		durRaw = DefaultWarnDuration
	}

	d := ParseDuration(durRaw)
	durText := FormatDuration(d)

	var expiresAt *time.Time
	if d != nil {
		t := time.Now().Add(*d)
		expiresAt = &t
	}

	if _, err := warning.Add(h.db, i.GuildID, userID, handler.CallerID(i), reason, expiresAt); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to record warning")
		handler.RespondEphemeral(s, i, "Could not record the warning. Please try again later.")
		return
	}

	count, err := warning.CountActive(h.db, i.GuildID, userID, time.Now())
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to count warnings")
		count = 1
	}

	punishment := h.escalate(s, i, userID, reason, count)

	dmSent := h.dmUser(s, userID, "warned", reason, durText, h.guildName(s, i.GuildID))
	h.modLog(s, "Warning", "warned", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, durText)

	resp := fmt.Sprintf("<@%s> has been warned.\nReason: %s\nWarning will expire: %s\nCurrent Warning Count: %d\nDM Notification: %s",
		userID, reason, durText, count, sentText(dmSent))
	if punishment != "" {
		resp += "\n\n" + punishment
	}

	handler.RespondEphemeral(s, i, resp)
}

// escalate applies the automatic punishment for the active warning count
// and returns the note appended to the warn confirmation.
func (h *Service) escalate(s *discordgo.Session, i *discordgo.InteractionCreate, userID, reason string, count int64) string {
	botID := ""
	botName := "Automatic"
	if s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
		botName = s.State.User.Username
	}

	switch {
	case count >= banEscalationCount:
		auditReason := fmt.Sprintf("Automatic ban after %d warnings. Last warning by %s: %s",
			banEscalationCount, handler.CallerName(i), reason)
		if err := s.GuildBanCreateWithReason(i.GuildID, userID, auditReason, banDeleteMessageDays); err != nil {
			log.Error().Err(err).Str("user", userID).Msg("failed to auto-ban after warnings")
			return "⚠️ Attempted to auto-ban for 4 warnings but failed: " + err.Error()
		}

		h.modLog(s, "Ban (Automatic)", "banned", botID, botName, userID, h.userName(s, i.GuildID, userID),
			fmt.Sprintf("Automatic ban after reaching %d warnings. Last warning reason: %s", banEscalationCount, reason), "")

		return "🔨 User has been automatically **banned** for reaching 4 warnings"

	case count >= timeoutEscalationCount:
		until := time.Now().Add(day)
		auditReason := fmt.Sprintf("Automatic timeout after %d warnings. Last warning by %s: %s",
			timeoutEscalationCount, handler.CallerName(i), reason)
		if err := s.GuildMemberTimeout(i.GuildID, userID, &until, discordgo.WithAuditLogReason(auditReason)); err != nil {
			log.Error().Err(err).Str("user", userID).Msg("failed to auto-timeout after warnings")
			return "⚠️ Attempted to auto-mute/timeout for 3 warnings but failed: " + err.Error()
		}

		h.modLog(s, "Timeout (Automatic)", "timed out", botID, botName, userID, h.userName(s, i.GuildID, userID),
			fmt.Sprintf("Automatic 1-day timeout after reaching %d warnings. Last warning reason: %s", timeoutEscalationCount, reason), "1 day")

		return "🔇 User has been automatically **timed out for 1 day** for reaching 3 warnings"
	}

	return ""
}

func (h *Service) warnings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := handler.Options(i).UserID("user")

	active, err := h.activeWarnings(i.GuildID, userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to list warnings")
		handler.RespondEphemeral(s, i, "Could not load the warnings. Please try again later.")
		return
	}

	if len(active) == 0 {
		handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has no active warnings.", userID))
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Warnings for %s", h.userName(s, i.GuildID, userID)),
		Description: fmt.Sprintf("<@%s> has %d active warnings.", userID, len(active)),
		Color:       handler.ColorGold,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	for idx, w := range active {
		expires := "Never"
		if w.ExpiresAt != nil {
			expires = w.ExpiresAt.Format(warnDateFormat)
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("Warning #%d", idx+1),
			Value: fmt.Sprintf("**Reason:** %s\n**Moderator:** %s\n**Date:** %s\n**Expires:** %s",
				w.Reason, h.userName(s, i.GuildID, w.ModeratorID), w.CreatedAt.Format(warnDateFormat), expires),
		})
	}

	handler.RespondEmbedEphemeral(s, i, embed)
}

func (h *Service) unwarn(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")

	if opts.Has("number") {
		number := int(opts.Int("number"))

		active, err := h.activeWarnings(i.GuildID, userID)
		if err != nil {
			log.Error().Err(err).Str("user", userID).Msg("failed to list warnings")
			handler.RespondEphemeral(s, i, "Could not load the warnings. Please try again later.")
			return
		}

		if number < 1 || number > len(active) {
			handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has no warning #%d.", userID, number))
			return
		}

		if err := warning.Remove(h.db, active[number-1].ID); err != nil {
			log.Error().Err(err).Uint64("warning", active[number-1].ID).Msg("failed to remove warning")
			handler.RespondEphemeral(s, i, "Could not remove the warning. Please try again later.")
			return
		}

		handler.RespondEphemeral(s, i, fmt.Sprintf("Removed warning #%d for <@%s>.", number, userID))
		return
	}

	cleared, err := warning.ClearUser(h.db, i.GuildID, userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to clear warnings")
		handler.RespondEphemeral(s, i, "Could not clear the warnings. Please try again later.")
		return
	}

	if cleared == 0 {
		handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has no active warnings to clear.", userID))
		return
	}

	h.modLog(s, "Clear Warnings", "cleared of their warnings", handler.CallerID(i), handler.CallerName(i),
		userID, h.userName(s, i.GuildID, userID), fmt.Sprintf("Cleared %d warnings", cleared), "")

	handler.RespondEphemeral(s, i, fmt.Sprintf("Cleared %d warnings for <@%s>.", cleared, userID))
}

func (h *Service) kick(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")

	if denied := h.hierarchyDeny(s, i, userID, "kick"); denied != "" {
		handler.RespondEphemeral(s, i, denied)
		return
	}

	dmSent := h.dmUser(s, userID, "kicked", reason, "", h.guildName(s, i.GuildID))

	auditReason := fmt.Sprintf("Kicked by %s: %s", handler.CallerName(i), reason)
	if err := s.GuildMemberDeleteWithReason(i.GuildID, userID, auditReason); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to kick user")
		handler.RespondEphemeral(s, i, "I don't have permission to kick that user.")
		return
	}

	h.modLog(s, "Kick", "kicked", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, "")

	handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has been kicked.\nReason: %s\nDM Notification: %s",
		userID, reason, sentText(dmSent)))
}

func (h *Service) ban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")
	durRaw := opts.String("duration")
	if durRaw == "" {
		durRaw = "permanent"
	}

	if denied := h.hierarchyDeny(s, i, userID, "ban"); denied != "" {
		handler.RespondEphemeral(s, i, denied)
		return
	}

	d := ParseDuration(durRaw)
	durText := FormatDuration(d)

	dmSent := h.dmUser(s, userID, "banned", reason, durText, h.guildName(s, i.GuildID))

	auditReason := fmt.Sprintf("Banned by %s: %s", handler.CallerName(i), reason)
	if err := s.GuildBanCreateWithReason(i.GuildID, userID, auditReason, banDeleteMessageDays); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to ban user")
		handler.RespondEphemeral(s, i, "I don't have permission to ban that user.")
		return
	}

	h.modLog(s, "Ban", "banned", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, durText)

	handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has been banned.\nReason: %s\nDuration: %s\nDM Notification: %s",
		userID, reason, durText, sentText(dmSent)))

	if d != nil {
		h.scheduleUnban(s, i.GuildID, userID, *d, durText)
	}
}

// scheduleUnban lifts a temporary ban once its duration elapses. The timer
// does not survive a restart; a ban crossing a restart stays in place.
func (h *Service) scheduleUnban(s *discordgo.Session, guildID, userID string, d time.Duration, durText string) {
	time.AfterFunc(d, func() {
		auditReason := fmt.Sprintf("Temporary ban duration expired (%s)", durText)
		if err := s.GuildBanDelete(guildID, userID, discordgo.WithAuditLogReason(auditReason)); err != nil {
			log.Error().Err(err).Str("user", userID).Msg("failed to lift temporary ban")
			return
		}

		if h.cfg.Discord.ModLogChannelID == "" {
			return
		}

		embed := &discordgo.MessageEmbed{
			Title:       "Unban Action",
			Description: fmt.Sprintf("<@%s> (%s) has been automatically unbanned", userID, h.userName(s, guildID, userID)),
			Color:       handler.ColorGreen,
			Timestamp:   time.Now().Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Reason", Value: "Temporary ban duration expired"},
			},
			Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("User ID: %s", userID)},
		}
		if _, err := s.ChannelMessageSendEmbed(h.cfg.Discord.ModLogChannelID, embed); err != nil {
			log.Error().Err(err).Msg("failed to log automatic unban")
		}
	})
}

func (h *Service) unban(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")
	if reason == "" {
		reason = "No reason provided"
	}

	auditReason := fmt.Sprintf("Unbanned by %s: %s", handler.CallerName(i), reason)
	if err := s.GuildBanDelete(i.GuildID, userID, discordgo.WithAuditLogReason(auditReason)); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to unban user")
		handler.RespondEphemeral(s, i, "Could not unban that user. Are they banned?")
		return
	}

	h.modLog(s, "Unban", "unbanned", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, "")

	handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has been unbanned.\nReason: %s", userID, reason))
}

func (h *Service) mute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")
	durRaw := opts.String("duration")

	if denied := h.hierarchyDeny(s, i, userID, "mute"); denied != "" {
		handler.RespondEphemeral(s, i, denied)
		return
	}

	if target, err := h.guildMember(s, i.GuildID, userID); err == nil && timedOut(target) {
		handler.RespondEphemeral(s, i, fmt.Sprintf(
			"<@%s> is already timed out. To adjust the timeout, you must wait for it to expire.", userID))
		return
	}

	d := timeoutDuration(ParseDuration(durRaw))
	durText := FormatDuration(&d)
	until := time.Now().Add(d)

	auditReason := fmt.Sprintf("Muted by %s: %s", handler.CallerName(i), reason)
	if err := s.GuildMemberTimeout(i.GuildID, userID, &until, discordgo.WithAuditLogReason(auditReason)); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to timeout user")
		handler.RespondEphemeral(s, i, fmt.Sprintf("Failed to timeout user: %v", err))
		return
	}

	dmSent := h.dmUser(s, userID, "muted", reason, durText, h.guildName(s, i.GuildID))
	h.modLog(s, "Mute", "muted", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, durText)

	handler.RespondEphemeral(s, i, fmt.Sprintf(
		"<@%s> has been muted using Discord's timeout feature.\nReason: %s\nDuration: %s\nDM Notification: %s",
		userID, reason, durText, sentText(dmSent)))
}

func (h *Service) unmute(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	reason := opts.String("reason")
	if reason == "" {
		reason = "Manually unmuted"
	}

	target, err := h.guildMember(s, i.GuildID, userID)
	if err != nil || !timedOut(target) {
		handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> is not muted or timed out.", userID))
		return
	}

	auditReason := fmt.Sprintf("Unmuted by %s: %s", handler.CallerName(i), reason)
	if err := s.GuildMemberTimeout(i.GuildID, userID, nil, discordgo.WithAuditLogReason(auditReason)); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to remove timeout")
		handler.RespondEphemeral(s, i, fmt.Sprintf("Failed to remove timeout: %v", err))
		return
	}

	dmSent := false
	if ch, dmErr := s.UserChannelCreate(userID); dmErr == nil {
		_, dmErr = s.ChannelMessageSend(ch.ID, fmt.Sprintf("You have been unmuted in %s.\nReason: %s",
			h.guildName(s, i.GuildID), reason))
		dmSent = dmErr == nil
	}

	h.modLog(s, "Unmute", "unmuted", handler.CallerID(i), handler.CallerName(i), userID, h.userName(s, i.GuildID, userID), reason, "")

	handler.RespondEphemeral(s, i, fmt.Sprintf("<@%s> has been unmuted (timeout removed).\nReason: %s\nDM Notification: %s",
		userID, reason, sentText(dmSent)))
}

// hierarchyDeny enforces the role hierarchy when the target is a guild
// member. It returns the denial message, empty when the action may proceed.
func (h *Service) hierarchyDeny(s *discordgo.Session, i *discordgo.InteractionCreate, userID, action string) string {
	target, err := h.guildMember(s, i.GuildID, userID)
	if err != nil {
		// Not a member (e.g. banning by id); nothing to compare against.
		return ""
	}

	positions := h.rolePositions(s, i.GuildID)
	targetTop := topRolePosition(positions, target)

	if s.State != nil && s.State.User != nil {
		if botM, botErr := h.guildMember(s, i.GuildID, s.State.User.ID); botErr == nil {
			if topRolePosition(positions, botM) <= targetTop {
				return fmt.Sprintf("I cannot %s this user as their highest role is above or equal to mine.", action)
			}
		}
	}

	if i.Member != nil && topRolePosition(positions, i.Member) <= targetTop {
		return fmt.Sprintf("You cannot %s this user as their highest role is above or equal to yours.", action)
	}

	return ""
}

func (h *Service) activeWarnings(guildID, userID string) ([]models.Warning, error) {
	all, err := warning.ListByUser(h.db, guildID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	active := all[:0]
	for _, w := range all {
		if w.Active(now) {
			active = append(active, w)
		}
	}

	return active, nil
}

// dmUser notifies a user about a moderation action in their DMs and
// reports whether the message went through.
func (h *Service) dmUser(s *discordgo.Session, userID, action, reason, durText, guildName string) bool {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("You have been %s", action),
		Description: fmt.Sprintf("You have been %s in %s", action, guildName),
		Color:       handler.ColorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
	}
	if durText != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: durText})
	}

	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to open dm channel")
		return false
	}

	if _, err := s.ChannelMessageSendEmbed(ch.ID, embed); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to dm user about moderation action")
		return false
	}

	return true
}

// modLog posts a moderation action to the configured log channel.
func (h *Service) modLog(s *discordgo.Session, action, verb, modID, modName, targetID, targetName, reason, durText string) {
	if h.cfg.Discord.ModLogChannelID == "" {
		log.Warn().Msg("no log channel set for moderation actions")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s Action", action),
		Description: fmt.Sprintf("<@%s> (%s) has been %s", targetID, targetName, verb),
		Color:       handler.ColorRed,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Moderator", Value: fmt.Sprintf("<@%s> (%s)", modID, modName)},
			{Name: "Reason", Value: reason},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("User ID: %s", targetID)},
	}
	if durText != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Duration", Value: durText})
	}

	if _, err := s.ChannelMessageSendEmbed(h.cfg.Discord.ModLogChannelID, embed); err != nil {
		log.Error().Err(err).Str("channel", h.cfg.Discord.ModLogChannelID).Msg("failed to log moderation action")
	}
}

func (h *Service) guildMember(s *discordgo.Session, guildID, userID string) (*discordgo.Member, error) {
	if m, err := s.State.Member(guildID, userID); err == nil {
		return m, nil
	}

	return s.GuildMember(guildID, userID)
}

func (h *Service) guildName(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	if g, err := s.Guild(guildID); err == nil {
		return g.Name
	}

	return "the server"
}

func (h *Service) userName(s *discordgo.Session, guildID, userID string) string {
	if m, err := h.guildMember(s, guildID, userID); err == nil {
		if m.Nick != "" {
			return m.Nick
		}
		if m.User != nil {
			return m.User.Username
		}
	}

	if u, err := s.User(userID); err == nil {
		return u.Username
	}

	return userID
}

// rolePositions maps each guild role id to its hierarchy position.
func (h *Service) rolePositions(s *discordgo.Session, guildID string) map[string]int {
	var roles []*discordgo.Role
	if g, err := s.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
		roles = g.Roles
	} else if fetched, err := s.GuildRoles(guildID); err == nil {
		roles = fetched
	}

	positions := make(map[string]int, len(roles))
	for _, r := range roles {
		positions[r.ID] = r.Position
	}

	return positions
}

// topRolePosition returns the highest role position a member holds.
// Members with no roles sit at the @everyone position.
func topRolePosition(positions map[string]int, m *discordgo.Member) int {
	top := 0
	for _, roleID := range m.Roles {
		if p, ok := positions[roleID]; ok && p > top {
			top = p
		}
	}

	return top
}

// timeoutDuration caps a parsed duration at Discord's timeout maximum.
// Permanent mutes use the maximum.
func timeoutDuration(d *time.Duration) time.Duration {
	if d == nil || *d > MaxTimeout {
		return MaxTimeout
	}

	return *d
}

func timedOut(m *discordgo.Member) bool {
	return m != nil && m.CommunicationDisabledUntil != nil && m.CommunicationDisabledUntil.After(time.Now())
}

func sentText(sent bool) string {
	if sent {
		return "Sent"
	}

	return "Failed"
}
