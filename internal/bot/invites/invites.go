// Package invites tracks who invited whom. It keeps an in-memory snapshot of
// every guild's invite use counts and attributes each join to the invite
// whose count went up, charging leaves back to the original inviter.
package invites

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/invitestat"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// CmdInvites shows a member's invite counters.
	CmdInvites = "invites"
	// CmdInviteLeaderboard shows the guild's top inviters.
	CmdInviteLeaderboard = "inviteleaderboard"

	// DefaultLeaderboardSize is how many inviters are shown by default.
	DefaultLeaderboardSize = 10
	// MaxLeaderboardSize caps the leaderboard length.
	MaxLeaderboardSize = 25
)

// Service is the invites handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	mu   sync.Mutex
	uses map[string]map[string]int // guild id -> invite code -> use count
}

// Handler is the invites handler.
var Handler = Service{}

// Init initializes the invites handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db
	h.uses = make(map[string]map[string]int)

	commands := []*handler.Command{
		{
			Name:        CmdInvites,
			Description: "Check invite counts for yourself or another user",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up, defaults to you",
				},
			},
			Run: h.invites,
		},
		{
			Name:        CmdInviteLeaderboard,
			Description: "Show the server's top inviters",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "How many inviters to show, defaults to 10",
				},
			},
			Run: h.leaderboard,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

// OnGuildCreate seeds the invite snapshot for a guild. The gateway delivers
// one GuildCreate per guild after ready, so this doubles as startup seeding.
func (h *Service) OnGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	invites, err := s.GuildInvites(e.ID)
	if err != nil {
		log.Warn().Err(err).Str("guild", e.ID).Msg("missing permissions to fetch invites")
		h.store(e.ID, map[string]int{})
		return
	}

	h.store(e.ID, useCounts(invites))
	log.Info().Int("invites", len(invites)).Str("guild", e.ID).Msg("cached guild invites")
}

// OnInviteCreate adds a fresh invite to the snapshot.
func (h *Service) OnInviteCreate(s *discordgo.Session, e *discordgo.InviteCreate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.uses[e.GuildID] == nil {
		h.uses[e.GuildID] = make(map[string]int)
	}
	h.uses[e.GuildID][e.Code] = e.Uses
}

// OnInviteDelete drops a revoked invite from the snapshot.
func (h *Service) OnInviteDelete(s *discordgo.Session, e *discordgo.InviteDelete) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.uses[e.GuildID], e.Code)
}

// OnMemberAdd attributes a join to the invite whose use count increased.
func (h *Service) OnMemberAdd(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil {
		return
	}

	invites, err := s.GuildInvites(e.GuildID)
	if err != nil {
		log.Error().Err(err).Str("guild", e.GuildID).Msg("failed to fetch invites after join")
		return
	}

	before := h.swap(e.GuildID, useCounts(invites))
	code, inviterID, found := usedInvite(before, invites)

	if !found {
		h.logJoinUnattributed(s, e)
		return
	}

	if _, err := invitestat.TrackUse(h.db, e.GuildID, e.User.ID, inviterID, code, time.Now()); err != nil {
		log.Error().Err(err).Str("guild", e.GuildID).Str("user", e.User.ID).Msg("failed to track invite use")
		return
	}

	log.Info().Str("member", e.User.ID).Str("invite", code).Str("inviter", inviterID).Msg("member joined using invite")
	h.logJoin(s, e, inviterID, code)
}

// OnMemberRemove charges a leave back to the inviter.
func (h *Service) OnMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.User == nil {
		return
	}

	inviterID, err := invitestat.RecordLeave(h.db, e.GuildID, e.User.ID)
	if err != nil {
		if !errors.Is(err, invitestat.ErrInviteUseNotFound) {
			log.Error().Err(err).Str("guild", e.GuildID).Str("user", e.User.ID).Msg("failed to record leave")
		}
		return
	}

	h.logLeave(s, e, inviterID)
}

func (h *Service) invites(s *discordgo.Session, i *discordgo.InteractionCreate) {
	targetID := handler.Options(i).UserID("user")
	if targetID == "" {
		targetID = handler.CallerID(i)
	}

	stat, err := invitestat.GetOrCreate(h.db, i.GuildID, targetID)
	if err != nil {
		log.Error().Err(err).Str("user", targetID).Msg("failed to load invite stats")
		handler.RespondEphemeral(s, i, "Failed to load invite stats. Please try again later.")
		return
	}

	name, avatar := h.memberProfile(s, i.GuildID, targetID)
	handler.RespondEmbed(s, i, statsEmbed(name, avatar, stat))
}

func (h *Service) leaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := DefaultLeaderboardSize
	if opts := handler.Options(i); opts.Has("limit") {
		limit = int(opts.Int("limit"))
		if limit < 1 {
			limit = DefaultLeaderboardSize
		}
		if limit > MaxLeaderboardSize {
			limit = MaxLeaderboardSize
		}
	}

	stats, err := invitestat.Top(h.db, i.GuildID, limit)
	if err != nil {
		log.Error().Err(err).Str("guild", i.GuildID).Msg("failed to load invite leaderboard")
		handler.RespondEphemeral(s, i, "Failed to load the invite leaderboard. Please try again later.")
		return
	}
	if len(stats) == 0 {
		handler.RespondEphemeral(s, i, "No invite data found yet!")
		return
	}

	names := make([]string, len(stats))
	for idx := range stats {
		names[idx], _ = h.memberProfile(s, i.GuildID, stats[idx].UserID)
	}

	handler.RespondEmbed(s, i, leaderboardEmbed(stats, names))
}

// store replaces a guild's snapshot.
func (h *Service) store(guildID string, counts map[string]int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.uses[guildID] = counts
}

// swap replaces a guild's snapshot and returns the previous one.
func (h *Service) swap(guildID string, counts map[string]int) map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	before := h.uses[guildID]
	h.uses[guildID] = counts

	return before
}

func (h *Service) logJoin(s *discordgo.Session, e *discordgo.GuildMemberAdd, inviterID, code string) {
	channelID := h.cfg.Discord.InviteLogChannelID
	if channelID == "" {
		return
	}

	inviter := h.inviterLabel(s, e.GuildID, inviterID)
	embed := joinLogEmbed(e.User, fmt.Sprintf("<@%s> joined using %s's invite `%s`", e.User.ID, inviter, code), handler.ColorGreen)

	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		log.Error().Err(err).Str("member", e.User.ID).Msg("failed to log member join")
	}
}

func (h *Service) logJoinUnattributed(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	channelID := h.cfg.Discord.InviteLogChannelID
	if channelID == "" {
		return
	}

	description := fmt.Sprintf(
		"<@%s> joined, but their invite source couldn't be determined (could be vanity, direct join, or Discovery)", e.User.ID)
	color := handler.ColorBlue

	if guild, err := s.Guild(e.GuildID); err == nil && guild.VanityURLCode != "" {
		description = fmt.Sprintf("<@%s> joined using the server's vanity URL (`%s`)", e.User.ID, guild.VanityURLCode)
		color = handler.ColorPurple
	}

	if _, err := s.ChannelMessageSendEmbed(channelID, joinLogEmbed(e.User, description, color)); err != nil {
		log.Error().Err(err).Str("member", e.User.ID).Msg("failed to log member join")
	}
}

func (h *Service) logLeave(s *discordgo.Session, e *discordgo.GuildMemberRemove, inviterID string) {
	channelID := h.cfg.Discord.InviteLogChannelID
	if channelID == "" {
		return
	}

	inviter := h.inviterLabel(s, e.GuildID, inviterID)
	embed := joinLogEmbed(e.User, fmt.Sprintf("%s left the server. They were invited by %s.", e.User.Username, inviter), handler.ColorRed)
	embed.Title = "Member Left"

	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		log.Error().Err(err).Str("member", e.User.ID).Msg("failed to log member leave")
	}
}

// inviterLabel mentions the inviter, falling back to the raw id when they
// are no longer in the guild.
func (h *Service) inviterLabel(s *discordgo.Session, guildID, inviterID string) string {
	if _, err := s.State.Member(guildID, inviterID); err == nil {
		return "<@" + inviterID + ">"
	}
	if _, err := s.GuildMember(guildID, inviterID); err == nil {
		return "<@" + inviterID + ">"
	}

	return fmt.Sprintf("User (ID: %s)", inviterID)
}

// memberProfile resolves a member's display name and avatar URL.
func (h *Service) memberProfile(s *discordgo.Session, guildID, userID string) (string, string) {
	member, err := s.State.Member(guildID, userID)
	if err != nil {
		member, err = s.GuildMember(guildID, userID)
	}
	if err != nil || member.User == nil {
		return "User " + userID, ""
	}

	name := member.User.Username
	if member.Nick != "" {
		name = member.Nick
	}

	return name, member.User.AvatarURL("256")
}

// statsEmbed builds the invite counter card for one member.
func statsEmbed(name, avatarURL string, stat *models.InviteStat) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🎟️ Invite Stats for %s", name),
		Color: handler.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "✅ Regular Invites", Value: fmt.Sprintf("%d", stat.Regular), Inline: true},
			{Name: "🎁 Bonus Invites", Value: fmt.Sprintf("%d", stat.Bonus), Inline: true},
			{Name: "⚠️ Fake Invites", Value: fmt.Sprintf("%d", stat.Fake), Inline: true},
			{Name: "👋 Left Members", Value: fmt.Sprintf("%d", stat.Left), Inline: true},
			{Name: "📊 Total Invites", Value: fmt.Sprintf("**%d**", stat.Total()), Inline: true},
		},
	}

	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}

	return embed
}

// leaderboardEmbed builds the top inviter list. names must match stats by index.
func leaderboardEmbed(stats []models.InviteStat, names []string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Invite Leaderboard",
		Description: fmt.Sprintf("Top %d inviters in the server", len(stats)),
		Color:       handler.ColorGold,
	}

	for idx := range stats {
		stat := &stats[idx]
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s - %d invites", idx+1, names[idx], stat.Total()),
			Value: fmt.Sprintf("Regular: %d | Bonus: %d | Fake: %d | Left: %d",
				stat.Regular, stat.Bonus, stat.Fake, stat.Left),
		})
	}

	return embed
}

// joinLogEmbed builds a member movement log entry.
func joinLogEmbed(user *discordgo.User, description string, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Member Joined",
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Member ID: " + user.ID},
	}

	if avatar := user.AvatarURL("256"); avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatar}
	}

	return embed
}

// useCounts flattens invites into a code to use count snapshot.
func useCounts(invites []*discordgo.Invite) map[string]int {
	counts := make(map[string]int, len(invites))
	for _, invite := range invites {
		counts[invite.Code] = invite.Uses
	}

	return counts
}

// usedInvite finds the invite whose use count grew past the snapshot. A code
// missing from the snapshot with uses already on it is a fresh invite that
// was used before any event updated the cache.
func usedInvite(before map[string]int, invites []*discordgo.Invite) (string, string, bool) {
	for _, invite := range invites {
		previous, known := before[invite.Code]

		used := (known && invite.Uses > previous) || (!known && invite.Uses > 0)
		if !used {
			continue
		}

		inviterID := ""
		if invite.Inviter != nil {
			inviterID = invite.Inviter.ID
		}
		if inviterID == "" {
			continue
		}

		return invite.Code, inviterID, true
	}

	return "", "", false
}
