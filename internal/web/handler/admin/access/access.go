// Package access provides the command access overview page. It renders the
// effective rule table the resolver works from, per guild: the policies set
// through chat commands plus the fixed rules from the config file.
package access

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	accessstore "github.com/MyteScripts/gridbot/internal/access"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/handler/dashboard"
	authmiddleware "github.com/MyteScripts/gridbot/internal/web/middleware/auth"
	"github.com/MyteScripts/gridbot/internal/web/navigation"
)

const (
	// Path is the base path for the command access page.
	Path = handler.RootPath + "admin/access"

	// TemplateName is the name of the command access template.
	TemplateName = "admin/access/list"

	// DefaultPageSize is the default number of rules per page.
	DefaultPageSize = 25

	// SourceChat marks rules set at runtime through chat commands.
	SourceChat = "chat"
	// SourceConfig marks rules loaded from the config file.
	SourceConfig = "config"
)

// Service is the command access handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	store *accessstore.Store
}

// Data represents the data passed to the template.
type Data struct {
	GuildID          string
	Guilds           []string
	Rules            []Rule
	ForcedVisible    []string
	SuperAdminCount  int
	SuperAdminRoleID string
	PinnedCommand    string
	PinnedAdminID    string
	CurrentPage      int
	PageSize         int
	TotalItems       int
	TotalPages       int
	HasPrevPage      bool
	HasNextPage      bool
	PrevPage         int
	NextPage         int
	SearchQuery      string
	FilterSource     string
}

// Rule is one effective access entry in the table. Access is a short
// human readable description of who may run the command.
type Rule struct {
	Command string
	Access  string
	Source  string
}

// Handler is the command access handler.
var Handler = Service{}

// Init initializes the command access handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, store *accessstore.Store) {
	if app == nil || cfg == nil || store == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.store = store

	// register routes
	app.Get(Path, authmiddleware.RequireAdmin, s.Get)
}

// Get handles the command access page rendering with pagination.
func (s *Service) Get(c *fiber.Ctx) error {
	// Create navigation context
	// only admins reach this handler, see RequireAdmin in Init
	nav := navigation.NewContext("Command Access", "admin", "access").
		WithAdmin(true).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Command Access", Path, true)

	// Parse query params
	page, pageSize := getPaginationParams(c)
	searchQuery, filterSource := getSearchAndFilter(c)

	guildID := c.Query("guild", s.defaultGuild())

	// Build and filter the rule table
	all := s.buildRules(guildID)

	rules := make([]Rule, 0, len(all))
	for _, rule := range all {
		if includeRule(rule, searchQuery, filterSource) {
			rules = append(rules, rule)
		}
	}

	// Pagination
	totalItems := len(rules)
	totalPages, page := computeTotalPagesAndAdjust(totalItems, pageSize, page)
	startIdx, endIdx := pageSliceBounds(totalItems, pageSize, page)
	paginated := rules[startIdx:endIdx]

	data := s.buildData(guildID, paginated, page, pageSize, totalItems, totalPages, searchQuery, filterSource)

	log.Info().
		Str("guild_id", guildID).
		Int("total_rules", totalItems).
		Int("page", page).
		Int("page_size", pageSize).
		Str("search", searchQuery).
		Str("filter_source", filterSource).
		Msg("Command access rules retrieved successfully")

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

// buildRules collects the guild's effective rule table from the persisted
// store and the fixed config rules. One command can appear twice, once per
// source; the resolver picks the persisted entry first.
func (s *Service) buildRules(guildID string) []Rule {
	rules := make([]Rule, 0, 32)

	// policies set with /permissions add, remove and reset
	for command, policy := range s.store.GuildPolicies(guildID) {
		access := "any member"
		if !policy.IsUnrestricted() {
			access = "roles " + strings.Join(policy.Roles(), ", ")
		}

		rules = append(rules, Rule{Command: command, Access: access, Source: SourceChat})
	}

	// commands opened up with /publiccommand add apply to every guild
	for _, command := range s.store.PublicCommands() {
		rules = append(rules, Rule{Command: command, Access: "everyone", Source: SourceChat})
	}

	for _, command := range s.cfg.Access.PublicCommands {
		if command = accessstore.Normalize(command); command != "" {
			rules = append(rules, Rule{Command: command, Access: "everyone", Source: SourceConfig})
		}
	}

	for _, command := range s.cfg.Access.RetiredCommands {
		if command = accessstore.Normalize(command); command != "" {
			rules = append(rules, Rule{Command: command, Access: "disabled", Source: SourceConfig})
		}
	}

	if pinned := accessstore.Normalize(s.cfg.Access.PinnedCommand); pinned != "" {
		rules = append(rules, Rule{
			Command: pinned,
			Access:  "admin " + s.cfg.Access.PinnedAdminID + " only",
			Source:  SourceConfig,
		})
	}

	// the config file maps role -> commands, the table is keyed by command
	grants := map[string][]string{}

	for roleID, commands := range s.cfg.Access.RoleGrants {
		if roleID == "" {
			continue
		}

		for _, command := range commands {
			if command == "*" {
				grants["*"] = append(grants["*"], roleID)
				continue
			}

			if command = accessstore.Normalize(command); command != "" {
				grants[command] = append(grants[command], roleID)
			}
		}
	}

	for command, roleIDs := range grants {
		sort.Strings(roleIDs)

		rules = append(rules, Rule{
			Command: command,
			Access:  "roles " + strings.Join(roleIDs, ", "),
			Source:  SourceConfig,
		})
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Command != rules[j].Command {
			return rules[i].Command < rules[j].Command
		}

		return rules[i].Source < rules[j].Source
	})

	return rules
}

// buildData constructs the Data struct for the template.
func (s *Service) buildData(
	guildID string,
	rules []Rule,
	page,
	pageSize,
	totalItems,
	totalPages int,
	searchQuery,
	filterSource string) Data {
	return Data{
		GuildID:          guildID,
		Guilds:           s.cfg.Discord.GuildIDs,
		Rules:            rules,
		ForcedVisible:    s.store.ForcedVisible(guildID),
		SuperAdminCount:  len(s.cfg.Access.SuperAdminIDs),
		SuperAdminRoleID: s.cfg.Access.SuperAdminRoleID,
		PinnedCommand:    accessstore.Normalize(s.cfg.Access.PinnedCommand),
		PinnedAdminID:    s.cfg.Access.PinnedAdminID,
		CurrentPage:      page,
		PageSize:         pageSize,
		TotalItems:       totalItems,
		TotalPages:       totalPages,
		HasPrevPage:      page > 1,
		HasNextPage:      page < totalPages,
		PrevPage:         page - 1,
		NextPage:         page + 1,
		SearchQuery:      searchQuery,
		FilterSource:     filterSource,
	}
}

// getPaginationParams parses and normalizes page and pageSize query parameters.
func getPaginationParams(c *fiber.Ctx) (int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	return page, pageSize
}

// getSearchAndFilter extracts search and source filter from the request.
func getSearchAndFilter(c *fiber.Ctx) (string, string) {
	filterSource := c.Query("source", "")
	if filterSource != SourceChat && filterSource != SourceConfig {
		filterSource = ""
	}

	return c.Query("search", ""), filterSource
}

// includeRule returns true if the rule matches search and filter criteria.
func includeRule(rule Rule, searchQuery, filterSource string) bool {
	if searchQuery != "" {
		query := strings.ToLower(searchQuery)

		if !strings.Contains(strings.ToLower(rule.Command), query) &&
			!strings.Contains(strings.ToLower(rule.Access), query) {
			return false
		}
	}

	if filterSource != "" && rule.Source != filterSource {
		return false
	}

	return true
}

// computeTotalPagesAndAdjust computes total pages and adjusts the page into range.
func computeTotalPagesAndAdjust(totalItems, pageSize, page int) (int, int) {
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return totalPages, page
}

// pageSliceBounds calculates start and end indices for slicing a page.
func pageSliceBounds(totalItems, pageSize, page int) (int, int) {
	startIdx := (page - 1) * pageSize

	endIdx := startIdx + pageSize
	if endIdx > totalItems {
		endIdx = totalItems
	}

	if startIdx < 0 {
		startIdx = 0
	}

	if startIdx > endIdx {
		startIdx = endIdx
	}

	return startIdx, endIdx
}
