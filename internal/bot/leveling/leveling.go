// Package leveling implements the XP progression commands and the message
// listener that awards XP and coins for chat activity.
package leveling

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/bot/handler"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/levelconfig"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	// CmdRank shows a member's profile card.
	CmdRank = "rank"
	// CmdLeaderboard shows the guild XP leaderboard.
	CmdLeaderboard = "leaderboard"
	// CmdSetXP overwrites a member's in-level XP.
	CmdSetXP = "setxp"
	// CmdSetLevel overwrites a member's level.
	CmdSetLevel = "setlevel"
	// CmdXPToggle enables or disables XP and coin gain.
	CmdXPToggle = "xptoggle"

	// DefaultLeaderboardSize is the page size when no limit option is given.
	DefaultLeaderboardSize = 10
	// MaxLeaderboardSize caps the limit option at Discord's embed field limit.
	MaxLeaderboardSize = 25

	progressBarLength = 15

	// settingsTTL bounds how stale the cached leveling rules may get before
	// the next message forces a reload from the database.
	settingsTTL = time.Minute
)

// Service is the leveling handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB

	mu         sync.Mutex
	lastAward  map[string]time.Time
	rules      levelconfig.Settings
	rulesAt    time.Time
	rulesValid bool
}

// Handler is the leveling handler.
var Handler = Service{}

// Init initializes the leveling handler.
func (h *Service) Init(reg *handler.Registry, cfg *config.Config, db *gorm.DB) {
	if reg == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilRCDFatalLogMsg)
		return
	}

	h.cfg = cfg
	h.db = db
	h.lastAward = make(map[string]time.Time)

	commands := []*handler.Command{
		{
			Name:        CmdRank,
			Description: "Show a member's level, XP and coin profile",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up, defaults to you",
				},
			},
			Run: h.rank,
		},
		{
			Name:        CmdLeaderboard,
			Description: "Show the top members by level and experience",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of members to show (1-25)",
				},
			},
			Run: h.leaderboard,
		},
		{
			Name:        CmdSetXP,
			Description: "Set a member's XP inside their current level",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to modify",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "New XP amount",
					Required:    true,
				},
			},
			Run: h.setXP,
		},
		{
			Name:        CmdSetLevel,
			Description: "Set a member's level",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to modify",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "level",
					Description: "New level",
					Required:    true,
				},
			},
			Run: h.setLevel,
		},
		{
			Name:        CmdXPToggle,
			Description: "Enable or disable XP and coin gain from activity",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Whether activity earns XP and coins",
					Required:    true,
				},
			},
			Run: h.xpToggle,
		},
	}

	for _, cmd := range commands {
		if err := reg.Add(cmd); err != nil {
			log.Fatal().Err(err).Str("command", cmd.Name).Msg("failed to register command")
		}
	}
}

func (h *Service) rank(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	name := ""
	if userID == "" {
		userID = handler.CallerID(i)
		name = handler.CallerName(i)
	}

	if name == "" {
		name = h.displayName(s, i.GuildID, userID)
	}

	rec, err := member.GetOrCreate(h.db, i.GuildID, userID, name)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to load member record")
		handler.RespondEphemeral(s, i, "Could not load the profile right now. Please try again later.")
		return
	}

	pos, err := member.Rank(h.db, i.GuildID, userID)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to compute leaderboard position")
		pos = 0
	}

	handler.RespondEmbed(s, i, rankEmbed(rec, pos, name, h.avatarURL(s, i.GuildID, userID), h.settings()))
}

func (h *Service) leaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	limit := int(handler.Options(i).Int("limit"))
	if limit < 1 {
		limit = DefaultLeaderboardSize
	}
	if limit > MaxLeaderboardSize {
		limit = MaxLeaderboardSize
	}

	top, err := member.TopByXP(h.db, i.GuildID, limit, 0)
	if err != nil {
		log.Error().Err(err).Str("guild", i.GuildID).Msg("failed to load leaderboard")
		handler.RespondEphemeral(s, i, "Could not load the leaderboard right now. Please try again later.")
		return
	}

	if len(top) == 0 {
		handler.RespondEphemeral(s, i, "No users found in the leaderboard yet!")
		return
	}

	handler.RespondEmbed(s, i, leaderboardEmbed(top))
}

func (h *Service) setXP(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	amount := opts.Int("amount")
	if amount < 0 {
		handler.RespondEphemeral(s, i, "Amount must be zero or positive.")
		return
	}

	rec, err := member.SetXP(h.db, i.GuildID, userID, amount)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to set member xp")
		handler.RespondEphemeral(s, i, "Could not update the member. Please try again later.")
		return
	}

	handler.RespondEphemeral(s, i, fmt.Sprintf("✅ Set <@%s>'s XP to %s.", userID, humanize.Comma(rec.XP)))
}

func (h *Service) setLevel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := handler.Options(i)

	userID := opts.UserID("user")
	level := int(opts.Int("level"))
	if level < 1 {
		handler.RespondEphemeral(s, i, "Level must be 1 or higher.")
		return
	}

	rec, err := member.SetLevel(h.db, i.GuildID, userID, level)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("failed to set member level")
		handler.RespondEphemeral(s, i, "Could not update the member. Please try again later.")
		return
	}

	handler.RespondEphemeral(s, i, fmt.Sprintf("✅ Set <@%s>'s level to %d.", userID, rec.Level))
}

func (h *Service) xpToggle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	enabled := handler.Options(i).Bool("enabled")

	rules := h.settings()
	if rules.Enabled == enabled {
		if enabled {
			handler.RespondEphemeral(s, i, "XP and coin gain is already enabled.")
		} else {
			handler.RespondEphemeral(s, i, "XP and coin gain is already disabled.")
		}
		return
	}

	rules.Enabled = enabled
	if err := rules.Save(h.db); err != nil {
		log.Error().Err(err).Msg("failed to save leveling rules")
		handler.RespondEphemeral(s, i, "Could not update the setting. Please try again later.")
		return
	}

	h.storeSettings(rules)

	embed := &discordgo.MessageEmbed{
		Title:       "⚠️ XP AND COIN GAIN DISABLED ⚠️",
		Description: "Users will no longer earn XP or coins from any activity.",
		Color:       handler.ColorRed,
	}
	if enabled {
		embed.Title = "✅ XP AND COIN GAIN ENABLED ✅"
		embed.Description = "Users will now earn XP and coins from activity again."
		embed.Color = handler.ColorGreen
	}

	handler.RespondEmbed(s, i, embed)
}

// OnMessageCreate awards XP and coins for guild chat activity. Awards are
// rate limited per member by the configured cooldown.
func (h *Service) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	rules := h.settings()
	if !rules.Enabled {
		return
	}

	if !h.claimAward(m.GuildID, m.Author.ID, rules.CooldownSeconds) {
		return
	}

	rec, err := member.GetOrCreate(h.db, m.GuildID, m.Author.ID, m.Author.Username)
	if err != nil {
		log.Error().Err(err).Str("user", m.Author.ID).Msg("failed to load member for xp award")
		return
	}

	earned := int64(rules.MinXPPerMessage)
	if spread := rules.MaxXPPerMessage - rules.MinXPPerMessage; spread > 0 {
		earned += int64(rand.Intn(spread + 1))
	}

	oldLevel := rec.Level
	newLevel, newXP, coins := rules.Advance(rec.Level, rec.XP, earned)

	rec.Level = newLevel
	rec.XP = newXP
	rec.Coins += coins
	rec.MessageCount++

	if err := member.Update(h.db, rec); err != nil {
		log.Error().Err(err).Str("user", m.Author.ID).Msg("failed to persist xp award")
		return
	}

	if newLevel > oldLevel {
		if _, err := s.ChannelMessageSendEmbed(m.ChannelID, levelUpEmbed(m.Author.ID, newLevel, coins)); err != nil {
			log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to announce level up")
		}
	}
}

// claimAward reports whether the member is past the award cooldown and
// stamps the attempt when they are.
func (h *Service) claimAward(guildID, userID string, cooldownSeconds int) bool {
	key := guildID + ":" + userID
	now := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.lastAward[key]; ok && now.Sub(last) < time.Duration(cooldownSeconds)*time.Second {
		return false
	}

	h.lastAward[key] = now

	return true
}

// settings returns the leveling rules, reloading from the database when the
// cached copy went stale. Toggle commands refresh the cache immediately.
func (h *Service) settings() levelconfig.Settings {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rulesValid && time.Since(h.rulesAt) < settingsTTL {
		return h.rules
	}

	rules := levelconfig.Defaults()
	if err := rules.Load(h.db); err != nil {
		log.Error().Err(err).Msg("failed to load leveling rules, using defaults")
		return rules
	}

	h.rules = rules
	h.rulesAt = time.Now()
	h.rulesValid = true

	return rules
}

func (h *Service) storeSettings(rules levelconfig.Settings) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.rules = rules
	h.rulesAt = time.Now()
	h.rulesValid = true
}

func (h *Service) displayName(s *discordgo.Session, guildID, userID string) string {
	m, err := s.State.Member(guildID, userID)
	if err != nil {
		m, err = s.GuildMember(guildID, userID)
		if err != nil {
			return "Unknown"
		}
	}

	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}

	return "Unknown"
}

func (h *Service) avatarURL(s *discordgo.Session, guildID, userID string) string {
	m, err := s.State.Member(guildID, userID)
	if err != nil {
		m, err = s.GuildMember(guildID, userID)
		if err != nil {
			return ""
		}
	}

	if m.User == nil {
		return ""
	}

	return m.User.AvatarURL("256")
}

// rankEmbed renders the profile card for a member record. pos is the
// one-based leaderboard position, zero when unknown.
func rankEmbed(rec *models.Member, pos int, name, avatarURL string, rules levelconfig.Settings) *discordgo.MessageEmbed {
	next := rules.RequiredXP(rec.Level)
	needed := next - rec.XP
	if needed < 0 {
		needed = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "```fix\n⚜️ LEVEL %d ⚜️```\n", rec.Level)
	fmt.Fprintf(&b, "%s\n\n", rankBadge(pos))
	fmt.Fprintf(&b, "**Progress:** `%s`\n", progressBar(rec.XP, next))
	fmt.Fprintf(&b, "**XP:** %s / %s (%d%%)\n", humanize.Comma(rec.XP), humanize.Comma(next), progressPercent(rec.XP, next))
	fmt.Fprintf(&b, "**Needed for Next Level:** %s XP\n\n", humanize.Comma(needed))
	fmt.Fprintf(&b, "**💰 Coins:** %s\n", humanize.Comma(rec.Coins))
	fmt.Fprintf(&b, "**💬 Messages:** %s", humanize.Comma(rec.MessageCount))

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("⚡ %s's Profile ⚡", name),
		Description: b.String(),
		Color:       levelColor(rec.Level),
		Footer:      &discordgo.MessageEmbedFooter{Text: footerTier(rec.Level)},
	}

	if avatarURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatarURL}
	}

	return embed
}

func leaderboardEmbed(top []models.Member) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Server Leaderboard",
		Description: fmt.Sprintf("Top %d members by level and experience", len(top)),
		Color:       handler.ColorGold,
	}

	for idx, rec := range top {
		name := rec.Username
		if name == "" {
			name = rec.UserID
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s", idx+1, name),
			Value: fmt.Sprintf("Level: **%d** | XP: **%d** | Coins: **%s**",
				rec.Level, rec.XP, humanize.Comma(rec.Coins)),
		})
	}

	return embed
}

func levelUpEmbed(userID string, level int, coins int64) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🎉 LEVEL UP! 🎉",
		Description: fmt.Sprintf("<@%s> has reached level **%d**!\n💰 You earned **%d** coins!",
			userID, level, coins),
		Color: handler.RainbowColors[rand.Intn(len(handler.RainbowColors))],
	}
}

// rankBadge maps a leaderboard position to its display badge.
func rankBadge(pos int) string {
	switch {
	case pos == 1:
		return "🥇 **SERVER CHAMPION**"
	case pos == 2:
		return "🥈 **ELITE CHALLENGER**"
	case pos == 3:
		return "🥉 **BRONZE CONTENDER**"
	case pos >= 4 && pos <= 10:
		return fmt.Sprintf("🏅 **TOP %d**", pos)
	case pos > 10:
		return fmt.Sprintf("🔹 **RANK #%d**", pos)
	default:
		return "🔹 **UNRANKED**"
	}
}

// progressBar renders in-level progress as a fixed-width block bar.
func progressBar(xp, next int64) string {
	filled := 0
	if next > 0 {
		filled = int(progressRatio(xp, next) * progressBarLength)
	}
	if filled > progressBarLength {
		filled = progressBarLength
	}

	return strings.Repeat("■", filled) + strings.Repeat("□", progressBarLength-filled)
}

func progressPercent(xp, next int64) int {
	return int(progressRatio(xp, next) * 100)
}

func progressRatio(xp, next int64) float64 {
	if next <= 0 {
		return 1
	}

	ratio := float64(xp) / float64(next)
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}

	return ratio
}

// levelColor shifts the base blue slightly per level so neighboring levels
// render distinct card colors.
func levelColor(level int) int {
	return 0x3498DB + (level%10)*0x030303
}

// footerTier returns the encouragement line for the level bracket.
func footerTier(level int) string {
	switch {
	case level < 10:
		return "Just getting started! Keep it up!"
	case level < 25:
		return "Making great progress! You're becoming a regular!"
	case level < 50:
		return "Impressive dedication! You're a vital community member!"
	default:
		return "Amazing commitment! You're a server legend!"
	}
}
