package config

import (
	"time"

	"github.com/MyteScripts/gridbot/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration `toml:"expiry_time"`
}

// Config overall data structure.
type Config struct {
	DevMode   bool `toml:"dev_mode"` // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Discord   Discord
	Access    Access
	Sync      Sync
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic        bool          `toml:"browse_static"`   // enable static file browsing (for development purposes only)
	CacheEnabled        bool          `toml:"cache_enabled"`   // true = enable cache, false = disable cache
	CleanPath           bool          `toml:"clean_path"`      // use clean path middleware to allow multi slash requests
	DisableRecover      bool          `toml:"disable_recover"` // disable recover middleware
	Domain              string        // domain name for the webserver
	Port                int           // listening port for the webserver
	ShutDownTime        int           `toml:"shutdown_time"` // wait time for shutdown
	URL                 string        // base url for the webserver
	CookieEncryptionKey string        `toml:"cookie_encryption_key"` // encryption key for cookies
	Argon2Salt          string        `toml:"argon2_salt"`           // salt for argon2 hashing
	TokenSecret         string        `toml:"token_secret"`          // HS256 secret for webtoken dashboard links
	TokenExpiry         time.Duration `toml:"token_expiry"`          // lifetime of a webtoken dashboard link
	Session             Session       // session settings
	OAuth               OAuth         // Discord OAuth2 login settings
}

// OAuth implements Discord OAuth2 settings for the dashboard login.
type OAuth struct {
	Enabled      bool
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

// Discord implements the bot gateway settings.
type Discord struct {
	Token    string   `validate:"required"` // bot token
	AppID    string   `toml:"app_id"`      // application id used for slash command registration
	GuildIDs []string `toml:"guild_ids"`   // guilds for instant command registration; empty registers globally
	Status   string   // presence text shown on the bot profile

	ModLogChannelID    string `toml:"modlog_channel"`     // moderation action log channel, empty disables
	ShopChannelID      string `toml:"shop_channel"`       // purchase notification channel, empty disables
	InviteLogChannelID string `toml:"invite_log_channel"` // join and leave attribution channel, empty disables
	TicketCategoryID   string `toml:"ticket_category"`    // category for new ticket channels, empty creates at guild root
	TicketLogChannelID string `toml:"ticket_log_channel"` // ticket lifecycle log channel, empty disables
	SupportRoleID      string `toml:"support_role"`       // role granted access to every ticket channel
}

// Access implements the access control resolver settings.
// All identities and role ids live here so no command logic carries literals.
type Access struct {
	DataDir          string              `toml:"data_dir"`            // directory holding the permission snapshots
	SuperAdminIDs    []string            `toml:"super_admins"`        // identities with unconditional access
	SuperAdminRoleID string              `toml:"super_admin_role"`    // role with unconditional access
	PinnedCommand    string              `toml:"pinned_command"`      // command gated to a single identity
	PinnedAdminID    string              `toml:"pinned_admin"`        // the only identity allowed to run the pinned command
	RetiredCommands  []string            `toml:"retired_commands"`    // commands that always deny with a removed message
	PublicCommands   []string            `toml:"public_commands"`     // built-in public list, unioned with the persisted one
	RoleGrants       map[string][]string `toml:"role_grants"`         // static role id -> "*" or explicit command list
}

// Sync implements the cross host snapshot sync settings.
type Sync struct {
	Enabled        bool
	Dir            string
	Interval       time.Duration
	BackupInterval time.Duration `toml:"backup_interval"`
	MaxAge         time.Duration `toml:"max_age"` // refuse to import snapshots older than this
	KeepBackups    int           `toml:"keep_backups"`
}
