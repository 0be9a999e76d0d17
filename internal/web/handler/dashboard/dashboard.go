// Package dashboard provides the dashboard handler with a guild's headline numbers.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/giveaway"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
	"github.com/MyteScripts/gridbot/internal/db/controller/ticket"
	"github.com/MyteScripts/gridbot/internal/db/controller/warning"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// Stats holds the headline numbers for one guild.
type Stats struct {
	Members          int64
	TotalXP          int64
	TotalCoins       int64
	OpenTickets      int64
	Warnings         int64
	RunningGiveaways int64
}

// Data represents the complete dashboard data.
type Data struct {
	GuildID     string
	Guilds      []string
	Stats       Stats
	OpenTickets []models.Ticket
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg

	// register routes
	app.Get(Path, s.Get)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	// Create navigation context
	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		WithAdmin(handler.CurrentUser(c).IsAdmin).
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	// Pick the guild (default: first configured guild)
	guildID := c.Query("guild", s.defaultGuild())

	data := Data{
		GuildID: guildID,
		Guilds:  s.cfg.Discord.GuildIDs,
	}

	// Without a guild there is nothing to count; the template shows a hint.
	if guildID != "" {
		stats, err := s.collectStats(guildID)
		if err != nil {
			log.Error().Err(err).Str("guild_id", guildID).Msg("failed to collect dashboard stats")

			return c.Status(fiber.StatusInternalServerError).SendString("Failed to load dashboard: " + err.Error())
		}

		data.Stats = stats

		openTickets, err := ticket.ListOpen(s.db, guildID)
		if err != nil {
			log.Error().Err(err).Str("guild_id", guildID).Msg("failed to list open tickets")

			return c.Status(fiber.StatusInternalServerError).SendString("Failed to load dashboard: " + err.Error())
		}

		data.OpenTickets = openTickets
	}

	log.Debug().
		Str("guild_id", guildID).
		Int64("members", data.Stats.Members).
		Int64("open_tickets", data.Stats.OpenTickets).
		Int64("warnings", data.Stats.Warnings).
		Int64("running_giveaways", data.Stats.RunningGiveaways).
		Msg("Dashboard stats retrieved successfully")

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Data":       data,
	}, handler.BaseLayout)
}

// defaultGuild returns the first configured guild id, if any.
func (s *Service) defaultGuild() string {
	if len(s.cfg.Discord.GuildIDs) > 0 {
		return s.cfg.Discord.GuildIDs[0]
	}

	return ""
}

// collectStats gathers the guild's headline numbers.
func (s *Service) collectStats(guildID string) (Stats, error) {
	var stats Stats

	members, err := member.Count(s.db, guildID)
	if err != nil {
		return stats, err
	}

	stats.Members = members

	xp, coins, err := member.Totals(s.db, guildID)
	if err != nil {
		return stats, err
	}

	stats.TotalXP = xp
	stats.TotalCoins = coins

	openTickets, err := ticket.CountOpen(s.db, guildID)
	if err != nil {
		return stats, err
	}

	stats.OpenTickets = openTickets

	warnings, err := warning.Count(s.db, guildID)
	if err != nil {
		return stats, err
	}

	stats.Warnings = warnings

	running, err := giveaway.CountActive(s.db, guildID)
	if err != nil {
		return stats, err
	}

	stats.RunningGiveaways = running

	return stats, nil
}
