// Package runtimeconfig provides the configuration overview page. It renders
// the effective process configuration, defaults plus file plus environment
// overrides, as a flat key table with credentials masked.
package runtimeconfig

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/handler/dashboard"
	authmiddleware "github.com/MyteScripts/gridbot/internal/web/middleware/auth"
	"github.com/MyteScripts/gridbot/internal/web/navigation"
)

const (
	// Path is the base path for the configuration page.
	Path = handler.RootPath + "admin/config"

	// TemplateName is the name of the configuration template.
	TemplateName = "admin/config/list"

	// DefaultPageSize is the default number of entries per page.
	DefaultPageSize = 25
)

// Service is the configuration page handler service.
type Service struct {
	handler.Service
	cfg *config.Config
}

// Data represents the data passed to the template.
type Data struct {
	Entries     []Entry
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasPrevPage bool
	HasNextPage bool
	PrevPage    int
	NextPage    int
	SearchQuery string
	FilterType  string
}

// Handler is the configuration page handler.
var Handler = Service{}

// Init initializes the configuration page handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) {
	if app == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg

	// register routes
	app.Get(Path, authmiddleware.RequireAdmin, s.Get)
}

// Get handles the configuration page rendering with pagination.
func (s *Service) Get(c *fiber.Ctx) error {
	// Create navigation context
	// only admins reach this handler, see RequireAdmin in Init
	nav := navigation.NewContext("Configuration", "admin", "config").
		WithAdmin(true).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Configuration", Path, true)

	// Parse query params
	page, pageSize := getPaginationParams(c)
	searchQuery, filterType := getSearchAndFilter(c)

	// Flatten and filter the effective configuration
	all := Flatten(s.cfg)

	entries := make([]Entry, 0, len(all))
	for _, entry := range all {
		if includeEntry(entry, searchQuery, filterType) {
			entries = append(entries, entry)
		}
	}

	// Pagination
	totalItems := len(entries)
	totalPages, page := computeTotalPagesAndAdjust(totalItems, pageSize, page)
	startIdx, endIdx := pageSliceBounds(totalItems, pageSize, page)
	paginated := entries[startIdx:endIdx]

	data := buildData(paginated, page, pageSize, totalItems, totalPages, searchQuery, filterType)

	log.Info().
		Int("total_entries", totalItems).
		Int("page", page).
		Int("page_size", pageSize).
		Str("search", searchQuery).
		Str("filter_type", filterType).
		Msg("Configuration entries retrieved successfully")

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Data":       data,
	}, handler.BaseLayout)
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

// getSearchAndFilter extracts search and type filter from the request.
func getSearchAndFilter(c *fiber.Ctx) (string, string) {
	filterType := c.Query("type", "")

	switch filterType {
	case TypeString, TypeInteger, TypeBoolean, TypeDuration, TypeList:
	default:
		filterType = ""
	}

	return c.Query("search", ""), filterType
}

// includeEntry returns true if the entry matches search and filter criteria.
// Masked values are not searchable, grepping for a secret must find nothing.
func includeEntry(entry Entry, searchQuery, filterType string) bool {
	if searchQuery != "" {
		query := strings.ToLower(searchQuery)

		value := entry.Value
		if value == Masked {
			value = ""
		}

		if !strings.Contains(strings.ToLower(entry.Key), query) &&
			!strings.Contains(strings.ToLower(value), query) {
			return false
		}
	}

	if filterType != "" && entry.Type != filterType {
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

// buildData constructs the Data struct for the template.
func buildData(
	entries []Entry,
	page,
	pageSize,
	totalItems,
	totalPages int,
	searchQuery,
	filterType string) Data {
	return Data{
		Entries:     entries,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		SearchQuery: searchQuery,
		FilterType:  filterType,
	}
}
