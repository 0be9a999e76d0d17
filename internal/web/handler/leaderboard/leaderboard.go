// Package leaderboard provides the paginated guild standings pages.
package leaderboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/controller/member"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/navigation"
)

const (
	// Path is the path to the leaderboard page.
	Path = handler.RootPath + "leaderboard"

	// TemplateName is the name of the leaderboard template.
	TemplateName = "leaderboard/leaderboard"

	// DefaultPageSize is the default number of rows per page.
	DefaultPageSize = 25

	// TabXP represents the level and XP standings tab.
	TabXP = "xp"

	// TabCoins represents the coin standings tab.
	TabCoins = "coins"
)

// Row is one leaderboard entry for template rendering.
type Row struct {
	Rank     int
	UserID   string
	Username string
	Level    int
	XP       int64
	Coins    int64
}

// QueryParams holds the query and pagination parameters.
type QueryParams struct {
	Page     int
	PageSize int
}

// TabData represents pagination data for a single tab.
type TabData struct {
	Rows        []Row
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasPrevPage bool
	HasNextPage bool
	PrevPage    int
	NextPage    int
}

// Data represents the complete leaderboard data.
type Data struct {
	GuildID   string
	Guilds    []string
	ActiveTab string
	XPTab     TabData
	CoinsTab  TabData
}

// Service is the leaderboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the leaderboard handler.
var Handler = Service{}

// Init initializes the leaderboard handler.
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

// Get handles the leaderboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	// Create navigation context
	nav := navigation.NewContext("Leaderboard", "leaderboard", "leaderboard").
		WithAdmin(handler.CurrentUser(c).IsAdmin).
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Leaderboard", Path, true)

	// Get active tab (default: xp)
	activeTab := c.Query("tab", TabXP)
	if activeTab != TabXP && activeTab != TabCoins {
		activeTab = TabXP
	}

	// Parse query parameters
	params := QueryParams{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", DefaultPageSize),
	}

	// Validate pagination parameters
	if params.Page < 1 {
		params.Page = 1
	}

	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = DefaultPageSize
	}

	guildID := c.Query("guild", s.defaultGuild())

	data := Data{
		GuildID:   guildID,
		Guilds:    s.cfg.Discord.GuildIDs,
		ActiveTab: activeTab,
	}

	if guildID != "" {
		tabData, err := s.loadTab(guildID, activeTab, &params)
		if err != nil {
			log.Error().Err(err).Str("guild_id", guildID).Msg("failed to load leaderboard")

			return c.Status(fiber.StatusInternalServerError).SendString("Failed to load leaderboard: " + err.Error())
		}

		// Populate active tab data and set the count for the other tab
		switch activeTab {
		case TabCoins:
			data.CoinsTab = tabData
			data.XPTab.TotalItems = tabData.TotalItems
		default:
			data.XPTab = tabData
			data.CoinsTab.TotalItems = tabData.TotalItems
		}
	}

	log.Debug().
		Str("guild_id", guildID).
		Str("active_tab", activeTab).
		Int("page", params.Page).
		Int("page_size", params.PageSize).
		Msg("Leaderboard retrieved successfully")

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

// loadTab fetches one page of standings for the requested tab.
func (s *Service) loadTab(guildID, activeTab string, params *QueryParams) (TabData, error) {
	total, err := member.Count(s.db, guildID)
	if err != nil {
		return TabData{}, err
	}

	totalPages, actualPage := paginate(int(total), params.Page, params.PageSize)
	params.Page = actualPage // Update page if it was adjusted

	offset := (params.Page - 1) * params.PageSize

	var members []models.Member

	switch activeTab {
	case TabCoins:
		members, err = member.TopByCoins(s.db, guildID, params.PageSize, offset)
	default:
		members, err = member.TopByXP(s.db, guildID, params.PageSize, offset)
	}

	if err != nil {
		return TabData{}, err
	}

	tabData := buildTabData(buildRows(members, offset), totalPages, params)
	tabData.TotalItems = int(total)

	return tabData, nil
}

// paginate clamps the requested page against the total row count.
func paginate(totalItems, page, pageSize int) (totalPages, actualPage int) {
	totalPages = (totalItems + pageSize - 1) / pageSize

	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

// buildRows converts member records to template rows with absolute ranks.
func buildRows(members []models.Member, offset int) []Row {
	rows := make([]Row, 0, len(members))

	for i := range members {
		m := &members[i]

		rows = append(rows, Row{
			Rank:     offset + i + 1,
			UserID:   m.UserID,
			Username: m.Username,
			Level:    m.Level,
			XP:       m.XP,
			Coins:    m.Coins,
		})
	}

	return rows
}

// buildTabData creates TabData with pagination information.
func buildTabData(rows []Row, totalPages int, params *QueryParams) TabData {
	return TabData{
		Rows:        rows,
		CurrentPage: params.Page,
		PageSize:    params.PageSize,
		TotalItems:  len(rows),
		TotalPages:  totalPages,
		HasPrevPage: params.Page > 1,
		HasNextPage: params.Page < totalPages,
		PrevPage:    params.Page - 1,
		NextPage:    params.Page + 1,
	}
}
