package runtimeconfig

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

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

func testConfig() *config.Config {
	return &config.Config{
		Title: "gridbot",
		DB: config.DB{
			GormEngine: "sqlite",
			Path:       "./gridbot.db",
			Password:   "hunter2",
		},
		Discord: config.Discord{
			Token:    "bot-token-value",
			AppID:    "app-1",
			GuildIDs: []string{"g1", "g2"},
		},
		Access: config.Access{
			DataDir:       "./data",
			SuperAdminIDs: []string{"u1", "u2"},
			RoleGrants: map[string][]string{
				"role-mod": {"warn", "kick"},
			},
		},
		Sync: config.Sync{
			Enabled:  true,
			Interval: 15 * time.Minute,
		},
		Webserver: config.Webserver{
			Port:        8080,
			URL:         "https://bot.example.com",
			TokenSecret: "sssh",
			TokenExpiry: 24 * time.Hour,
		},
	}
}

func entryByKey(t *testing.T, entries []Entry, key string) Entry {
	t.Helper()

	for _, e := range entries {
		if e.Key == key {
			return e
		}
	}

	t.Fatalf("entry %q not found", key)

	return Entry{}
}

func TestFlatten(t *testing.T) {
	entries := Flatten(testConfig())

	tests := []struct {
		key   string
		typ   string
		value string
	}{
		{key: "title", typ: TypeString, value: "gridbot"},
		{key: "db.gorm_engine", typ: TypeString, value: "sqlite"},
		{key: "db.password", typ: TypeString, value: Masked},
		{key: "discord.token", typ: TypeString, value: Masked},
		{key: "discord.guild_ids", typ: TypeList, value: "g1, g2"},
		{key: "access.super_admins", typ: TypeList, value: "u1, u2"},
		{key: "access.role_grants.role-mod", typ: TypeList, value: "warn, kick"},
		{key: "sync.enabled", typ: TypeBoolean, value: "true"},
		{key: "sync.interval", typ: TypeDuration, value: "15m0s"},
		{key: "webserver.port", typ: TypeInteger, value: "8080"},
		{key: "webserver.url", typ: TypeString, value: "https://bot.example.com"},
		{key: "webserver.token_secret", typ: TypeString, value: Masked},
		{key: "webserver.token_expiry", typ: TypeDuration, value: "24h0m0s"},
		// unset credentials stay visibly empty
		{key: "webserver.oauth.client_secret", typ: TypeString, value: ""},
	}

	for _, tt := range tests {
		entry := entryByKey(t, entries, tt.key)

		if entry.Type != tt.typ {
			t.Errorf("%s: expected type %q, got %q", tt.key, tt.typ, entry.Type)
		}

		if entry.Value != tt.value {
			t.Errorf("%s: expected value %q, got %q", tt.key, tt.value, entry.Value)
		}
	}
}

func TestFlattenNeverLeaksSecrets(t *testing.T) {
	cfg := testConfig()

	for _, entry := range Flatten(cfg) {
		for _, secret := range []string{cfg.Discord.Token, cfg.DB.Password, cfg.Webserver.TokenSecret} {
			if strings.Contains(entry.Value, secret) {
				t.Errorf("entry %q carries secret value %q", entry.Key, secret)
			}
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "plain value passes", key: "webserver.domain", value: "example.com", want: "example.com"},
		{name: "token is masked", key: "discord.token", value: "abc", want: Masked},
		{name: "secret is masked", key: "webserver.oauth.client_secret", value: "abc", want: Masked},
		{name: "password is masked", key: "db.password", value: "abc", want: Masked},
		{name: "salt is masked", key: "webserver.argon2_salt", value: "abc", want: Masked},
		{name: "key is masked", key: "webserver.cookie_encryption_key", value: "abc", want: Masked},
		{name: "empty secret stays empty", key: "discord.token", value: "", want: ""},
		{name: "marker in parent segment does not mask", key: "token.label", value: "abc", want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.key, tt.value); got != tt.want {
				t.Errorf("maskSecret(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestIncludeEntry(t *testing.T) {
	plain := Entry{Key: "webserver.port", Type: TypeInteger, Value: "8080"}
	masked := Entry{Key: "discord.token", Type: TypeString, Value: Masked}

	tests := []struct {
		name   string
		entry  Entry
		search string
		typ    string
		want   bool
	}{
		{name: "no criteria", entry: plain, want: true},
		{name: "search matches key", entry: plain, search: "PORT", want: true},
		{name: "search matches value", entry: plain, search: "8080", want: true},
		{name: "search misses", entry: plain, search: "discord", want: false},
		{name: "type matches", entry: plain, typ: TypeInteger, want: true},
		{name: "type misses", entry: plain, typ: TypeBoolean, want: false},
		{name: "masked value key still searchable", entry: masked, search: "token", want: true},
		{name: "masked value is not searchable", entry: masked, search: Masked, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := includeEntry(tt.entry, tt.search, tt.typ); got != tt.want {
				t.Errorf("includeEntry(%v, %q, %q) = %v, want %v", tt.entry, tt.search, tt.typ, got, tt.want)
			}
		})
	}
}

func TestComputeTotalPagesAndAdjust(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int
		pageSize   int
		page       int
		wantPages  int
		wantPage   int
	}{
		{name: "exact fit", totalItems: 50, pageSize: 25, page: 1, wantPages: 2, wantPage: 1},
		{name: "remainder adds page", totalItems: 51, pageSize: 25, page: 3, wantPages: 3, wantPage: 3},
		{name: "page clamped", totalItems: 10, pageSize: 25, page: 9, wantPages: 1, wantPage: 1},
		{name: "empty set keeps one page", totalItems: 0, pageSize: 25, page: 1, wantPages: 1, wantPage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages, page := computeTotalPagesAndAdjust(tt.totalItems, tt.pageSize, tt.page)

			if pages != tt.wantPages || page != tt.wantPage {
				t.Errorf("got (%d, %d), want (%d, %d)", pages, page, tt.wantPages, tt.wantPage)
			}
		})
	}
}

func TestPageSliceBounds(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int
		pageSize   int
		page       int
		wantStart  int
		wantEnd    int
	}{
		{name: "first page", totalItems: 60, pageSize: 25, page: 1, wantStart: 0, wantEnd: 25},
		{name: "last partial page", totalItems: 60, pageSize: 25, page: 3, wantStart: 50, wantEnd: 60},
		{name: "empty set", totalItems: 0, pageSize: 25, page: 1, wantStart: 0, wantEnd: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := pageSliceBounds(tt.totalItems, tt.pageSize, tt.page)

			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("got (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

// newTestApp builds the handler behind a stand-in for the auth middleware
// that places the given account into locals.
func newTestApp(current models.User) *fiber.App {
	app := fiber.New(fiber.Config{Views: testViews{}})

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("CurrentUser", current)
		return c.Next()
	})

	var s Service
	s.Init(app, testConfig())

	return app
}

func TestGetRendersForAdmin(t *testing.T) {
	app := newTestApp(models.User{ID: 1, Username: "root", IsAdmin: true})

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
		t.Fatalf("expected configuration template, got %q", string(bodyBytes))
	}
}

func TestGetForbiddenForRegularUser(t *testing.T) {
	app := newTestApp(models.User{ID: 2, Username: "member"})

	req := httptest.NewRequest(http.MethodGet, Path, nil)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 Forbidden, got %d", resp.StatusCode)
	}
}
