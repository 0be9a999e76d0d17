package user

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/auth"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

// testViews writes the "Error" field from the provided fiber.Map (if any)
// so tests can assert error messages, and the template name otherwise.
type testViews struct{}

func (testViews) Load() error { return nil }

func (testViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		if v, exists := m["Error"]; exists && v != nil {
			_, _ = io.WriteString(w, v.(string))
			return nil
		}
	}

	_, _ = io.WriteString(w, name)

	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	return db
}

// newTestService builds the handler behind a stand-in for the auth middleware
// that places the given account into locals.
func newTestService(t *testing.T, db *gorm.DB, current models.User) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{Views: testViews{}})

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("CurrentUser", current)
		return c.Next()
	})

	var s Service
	s.Init(app, &config.Config{}, db)

	return app
}

// seedAdmin creates the admin account the test requests act as.
func seedAdmin(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	admin, err := auth.NewLocalProvider(db).CreateUser("root", "root@example.com", "rootpassword", true)
	if err != nil {
		t.Fatalf("failed to seed admin: %v", err)
	}

	return *admin
}

func performPost(t *testing.T, app *fiber.App, target string, form url.Values) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func performGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	return string(bodyBytes)
}

func TestListRendersAccounts(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	resp := performGet(t, app, Path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if body := readBody(t, resp); !strings.Contains(body, TemplateList) {
		t.Errorf("body = %q, want the list template", body)
	}
}

func TestNonAdminIsForbidden(t *testing.T) {
	db := newTestDB(t)
	seedAdmin(t, db)

	member := models.User{ID: 99, Username: "member", Active: true}
	app := newTestService(t, db, member)

	resp := performGet(t, app, Path)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	_ = resp.Body.Close()
}

func TestCreateAccount(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	resp := performPost(t, app, Path, url.Values{
		"username": {"moderator"},
		"email":    {"mod@example.com"},
		"password": {"supersecret"},
		"is_admin": {"true"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	_ = resp.Body.Close()

	created, err := auth.NewLocalProvider(db).GetUserByUsername("moderator")
	if err != nil {
		t.Fatalf("created account not found: %v", err)
	}

	if !created.IsAdmin || !created.Active {
		t.Errorf("created account = admin %v active %v, want both true", created.IsAdmin, created.Active)
	}

	if created.AuthSource != models.AuthSourceLocal {
		t.Errorf("auth source = %q, want %q", created.AuthSource, models.AuthSourceLocal)
	}
}

func TestCreateDuplicateRendersError(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	form := url.Values{
		"username": {"moderator"},
		"email":    {"mod@example.com"},
		"password": {"supersecret"},
	}

	_ = readBody(t, performPost(t, app, Path, form))

	resp := performPost(t, app, Path, form)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	if body := readBody(t, resp); !strings.Contains(body, "Failed to create account") {
		t.Errorf("body = %q, want a create error", body)
	}
}

func TestCreateRejectsShortPassword(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	resp := performPost(t, app, Path, url.Values{
		"username": {"moderator"},
		"email":    {"mod@example.com"},
		"password": {"short"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	_ = resp.Body.Close()
}

func TestUpdatePromotesAndDeactivates(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	provider := auth.NewLocalProvider(db)

	member, err := provider.CreateUser("member", "member@example.com", "memberpass", false)
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	// is_admin checked, active unchecked
	resp := performPost(t, app, Path+"/"+itoa(member.ID), url.Values{
		"email":    {"member@example.com"},
		"is_admin": {"true"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	_ = resp.Body.Close()

	updated, err := provider.GetUserByID(member.ID)
	if err != nil {
		t.Fatalf("failed to reload member: %v", err)
	}

	if !updated.IsAdmin {
		t.Error("member was not promoted")
	}

	if updated.Active {
		t.Error("member was not deactivated")
	}
}

func TestUpdateResetsLocalPassword(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	provider := auth.NewLocalProvider(db)

	member, err := provider.CreateUser("member", "member@example.com", "memberpass", false)
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	resp := performPost(t, app, Path+"/"+itoa(member.ID), url.Values{
		"email":    {"member@example.com"},
		"active":   {"true"},
		"password": {"freshpassword"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	_ = resp.Body.Close()

	if _, err := provider.Authenticate("member", "freshpassword"); err != nil {
		t.Errorf("new password does not authenticate: %v", err)
	}
}

func TestUpdateSelfDemoteBlocked(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	resp := performPost(t, app, Path+"/"+itoa(admin.ID), url.Values{
		"email":  {"root@example.com"},
		"active": {"true"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	if body := readBody(t, resp); !strings.Contains(body, "your own admin access") {
		t.Errorf("body = %q, want the self demote error", body)
	}

	reloaded, err := auth.NewLocalProvider(db).GetUserByID(admin.ID)
	if err != nil {
		t.Fatalf("failed to reload admin: %v", err)
	}

	if !reloaded.IsAdmin {
		t.Error("admin flag was removed despite the guard")
	}
}

func TestDeleteGuardsAndRemoves(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db)
	app := newTestService(t, db, admin)

	provider := auth.NewLocalProvider(db)

	other, err := provider.CreateUser("second", "second@example.com", "secondpass", true)
	if err != nil {
		t.Fatalf("failed to create second admin: %v", err)
	}

	// admins cannot be deleted
	resp := performPost(t, app, Path+"/"+itoa(other.ID)+"/delete", url.Values{})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	_ = resp.Body.Close()

	member, err := provider.CreateUser("member", "member@example.com", "memberpass", false)
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	resp = performPost(t, app, Path+"/"+itoa(member.ID)+"/delete", url.Values{})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	_ = resp.Body.Close()

	if _, err := provider.GetUserByID(member.ID); err == nil {
		t.Error("member still exists after delete")
	}
}

func itoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
