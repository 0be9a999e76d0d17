package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testConfigPath(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	// Test basic config fields
	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Webserver.Port == 0 {
		t.Error("Webserver.Port should not be 0")
	}

	if cfg.Webserver.URL == "" {
		t.Error("Webserver.URL should not be empty")
	}

	if cfg.Webserver.TokenExpiry != 24*time.Hour {
		t.Errorf("Webserver.TokenExpiry = %v, want 24h", cfg.Webserver.TokenExpiry)
	}

	// Test DB config
	if cfg.DB.GormEngine != EngineSQLite {
		t.Errorf("DB.GormEngine = %v, want sqlite", cfg.DB.GormEngine)
	}

	if cfg.Discord.Token == "" {
		t.Error("Discord.Token should not be empty")
	}
}

func TestReadConfigAccess(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	access := cfg.Access

	if access.DataDir == "" {
		t.Error("Access.DataDir should not be empty")
	}

	if len(access.SuperAdminIDs) == 0 {
		t.Fatal("Access.SuperAdminIDs should not be empty")
	}

	if access.PinnedCommand != "dbsync" {
		t.Errorf("Access.PinnedCommand = %v, want dbsync", access.PinnedCommand)
	}

	if access.PinnedAdminID != access.SuperAdminIDs[0] {
		t.Errorf("Access.PinnedAdminID = %v, want the first super admin %v",
			access.PinnedAdminID, access.SuperAdminIDs[0])
	}

	if len(access.RoleGrants) == 0 {
		t.Fatal("Access.RoleGrants should not be empty")
	}

	// at least one role must carry the wildcard grant
	var foundWildcard bool

	for _, grants := range access.RoleGrants {
		for _, grant := range grants {
			if grant == "*" {
				foundWildcard = true
			}
		}
	}

	if !foundWildcard {
		t.Error("Access.RoleGrants should contain at least one wildcard grant")
	}
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		return Config{
			Discord: Discord{Token: "token"},
			Access:  Access{DataDir: "data"},
			Webserver: Webserver{
				Port: 8080,
				URL:  "http://localhost:8080",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Webserver.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing URL",
			mutate:  func(c *Config) { c.Webserver.URL = "" },
			wantErr: true,
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: true,
		},
		{
			name:    "missing access data dir",
			mutate:  func(c *Config) { c.Access.DataDir = "" },
			wantErr: true,
		},
		{
			name: "pinned command without pinned admin",
			mutate: func(c *Config) {
				c.Access.PinnedCommand = "dbsync"
				c.Access.PinnedAdminID = ""
			},
			wantErr: true,
		},
		{
			name:    "unknown gorm engine",
			mutate:  func(c *Config) { c.DB.GormEngine = "oracle" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	// Set JSON override environment variable
	jsonOverride := `{"Title":"Test Override","Webserver":{"Port":9090}}`
	t.Setenv("GRIDBOT_CONFIG_JSON", jsonOverride)

	cfg, err := ReadConfig(testConfigPath(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title != "Test Override" {
		t.Errorf("Title = %v, want %v", cfg.Title, "Test Override")
	}

	if cfg.Webserver.Port != 9090 {
		t.Errorf("Webserver.Port = %v, want %v", cfg.Webserver.Port, 9090)
	}
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{
		Title:   "Test",
		DevMode: true,
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
	}

	tomlStr, err := DumpConfig(cfg)
	if err != nil {
		t.Fatalf("DumpConfig() error = %v", err)
	}

	if tomlStr == "" {
		t.Error("DumpConfig() returned empty string")
	}

	// Check if output contains expected values
	if !strings.Contains(tomlStr, "Test") {
		t.Error("DumpConfig() output should contain Title")
	}
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := Config{
		Title:   "Test",
		DevMode: true,
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
	}

	jsonStr, err := DumpConfigJSON(cfg)
	if err != nil {
		t.Fatalf("DumpConfigJSON() error = %v", err)
	}

	if jsonStr == "" {
		t.Error("DumpConfigJSON() returned empty string")
	}

	// Check if output is valid JSON by checking for expected fields
	if !strings.Contains(jsonStr, "Test") {
		t.Error("DumpConfigJSON() output should contain Title")
	}
}
