package leaderboard

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

// testViews is a minimal Fiber Views engine that writes the template name.
type testViews struct{}

func (testViews) Load() error { return nil }

func (testViews) Render(w io.Writer, name string, _ interface{}, _ ...string) error {
	_, err := io.WriteString(w, name)
	return err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.Member{}); err != nil {
		t.Fatalf("failed to migrate member model: %v", err)
	}

	return db
}

func newTestService(t *testing.T) (*Service, *fiber.App, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	app := fiber.New(fiber.Config{Views: testViews{}})
	cfg := &config.Config{
		Discord: config.Discord{GuildIDs: []string{"g1"}},
	}

	var s Service
	s.Init(app, cfg, db)

	return &s, app, db
}

// seedMembers creates n members where u0 leads on XP and the last member
// leads on coins.
func seedMembers(t *testing.T, db *gorm.DB, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		m := models.Member{
			GuildID:  "g1",
			UserID:   fmt.Sprintf("u%d", i),
			Username: fmt.Sprintf("member%d", i),
			Level:    1,
			XP:       int64(1000 - i*10),
			Coins:    int64(i),
		}

		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("failed to seed member: %v", err)
		}
	}
}

func TestLoadTabXPFirstPage(t *testing.T) {
	s, _, db := newTestService(t)

	seedMembers(t, db, 30)

	params := QueryParams{Page: 1, PageSize: 25}

	tab, err := s.loadTab("g1", TabXP, &params)
	if err != nil {
		t.Fatalf("loadTab failed: %v", err)
	}

	if len(tab.Rows) != 25 {
		t.Fatalf("expected 25 rows, got %d", len(tab.Rows))
	}

	if tab.Rows[0].Rank != 1 || tab.Rows[0].UserID != "u0" || tab.Rows[0].XP != 1000 {
		t.Fatalf("unexpected first row: %+v", tab.Rows[0])
	}

	if tab.TotalItems != 30 || tab.TotalPages != 2 {
		t.Fatalf("expected 30 items over 2 pages, got %d items, %d pages", tab.TotalItems, tab.TotalPages)
	}

	if tab.HasPrevPage || !tab.HasNextPage {
		t.Fatalf("expected next page only, got prev=%v next=%v", tab.HasPrevPage, tab.HasNextPage)
	}
}

func TestLoadTabXPSecondPage(t *testing.T) {
	s, _, db := newTestService(t)

	seedMembers(t, db, 30)

	params := QueryParams{Page: 2, PageSize: 25}

	tab, err := s.loadTab("g1", TabXP, &params)
	if err != nil {
		t.Fatalf("loadTab failed: %v", err)
	}

	if len(tab.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(tab.Rows))
	}

	// Ranks continue across pages.
	if tab.Rows[0].Rank != 26 {
		t.Fatalf("expected rank 26, got %d", tab.Rows[0].Rank)
	}

	if !tab.HasPrevPage || tab.HasNextPage {
		t.Fatalf("expected prev page only, got prev=%v next=%v", tab.HasPrevPage, tab.HasNextPage)
	}
}

func TestLoadTabClampsPage(t *testing.T) {
	s, _, db := newTestService(t)

	seedMembers(t, db, 30)

	params := QueryParams{Page: 99, PageSize: 25}

	tab, err := s.loadTab("g1", TabXP, &params)
	if err != nil {
		t.Fatalf("loadTab failed: %v", err)
	}

	if tab.CurrentPage != 2 {
		t.Fatalf("expected clamped page 2, got %d", tab.CurrentPage)
	}

	if len(tab.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(tab.Rows))
	}
}

func TestLoadTabCoins(t *testing.T) {
	s, _, db := newTestService(t)

	seedMembers(t, db, 10)

	params := QueryParams{Page: 1, PageSize: 25}

	tab, err := s.loadTab("g1", TabCoins, &params)
	if err != nil {
		t.Fatalf("loadTab failed: %v", err)
	}

	if len(tab.Rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(tab.Rows))
	}

	if tab.Rows[0].UserID != "u9" || tab.Rows[0].Coins != 9 {
		t.Fatalf("unexpected coin leader: %+v", tab.Rows[0])
	}
}

func TestPaginate(t *testing.T) {
	testCases := []struct {
		name           string
		totalItems     int
		page           int
		pageSize       int
		expectedPages  int
		expectedActual int
	}{
		{name: "empty", totalItems: 0, page: 1, pageSize: 25, expectedPages: 1, expectedActual: 1},
		{name: "single page", totalItems: 10, page: 1, pageSize: 25, expectedPages: 1, expectedActual: 1},
		{name: "exact fit", totalItems: 50, page: 2, pageSize: 25, expectedPages: 2, expectedActual: 2},
		{name: "clamped", totalItems: 30, page: 9, pageSize: 25, expectedPages: 2, expectedActual: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			totalPages, actualPage := paginate(tc.totalItems, tc.page, tc.pageSize)

			if totalPages != tc.expectedPages {
				t.Errorf("expected %d pages, got %d", tc.expectedPages, totalPages)
			}

			if actualPage != tc.expectedActual {
				t.Errorf("expected page %d, got %d", tc.expectedActual, actualPage)
			}
		})
	}
}

func TestGetRendersLeaderboard(t *testing.T) {
	_, app, db := newTestService(t)

	seedMembers(t, db, 3)

	req := httptest.NewRequest(http.MethodGet, Path, nil)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(bodyBytes), TemplateName) {
		t.Fatalf("expected leaderboard template, got %q", string(bodyBytes))
	}
}
