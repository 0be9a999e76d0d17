// Package discord wires the Discord OAuth2 login flow into the dashboard.
package discord

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/auth"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/handler/dashboard"
	"github.com/MyteScripts/gridbot/internal/web/handler/login"
)

const (
	// LoginPath is the path to initiate Discord OAuth2 login.
	LoginPath = login.Path + "/discord"

	// CallbackPath is the path Discord redirects back to after authorization.
	CallbackPath = login.Path + "/discord/callback"

	// stateTTL is how long an issued state token stays valid.
	stateTTL = 5 * time.Minute
)

// Service is the Discord OAuth2 handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider *auth.DiscordProvider
	accounts *auth.Service

	// stateMu guards stateStore, which is shared with the cleanup goroutine.
	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the Discord OAuth2 handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the Discord OAuth2 handler. When OAuth is disabled in the
// configuration the routes are not registered and the login page simply does
// not offer the Discord button.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.accounts = auth.NewService(db)

	if s.stateStore == nil {
		s.stateStore = make(map[string]time.Time)
	}

	if !cfg.Webserver.OAuth.Enabled {
		log.Info().Msg("Discord OAuth2 authentication is disabled by configuration")
		return
	}

	provider, err := auth.NewDiscordProvider(cfg.Webserver.OAuth)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Discord OAuth2 provider - Discord login will be disabled")
		return
	}

	s.provider = provider

	log.Info().Msg("Discord OAuth2 authentication provider initialized")

	// Register routes
	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	// Start state cleanup goroutine
	go s.cleanupStates()
}

// Login initiates the Discord OAuth2 login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	if s.provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Discord authentication is not available")
	}

	// Generate state token for CSRF protection
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate state token")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	s.storeState(state)

	// Redirect to Discord
	return c.Redirect(s.provider.AuthURL(state))
}

// Callback handles the Discord OAuth2 callback.
func (s *Service) Callback(c *fiber.Ctx) error {
	if s.provider == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Discord authentication is not available")
	}

	// Get code and state from query parameters
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("Missing code or state in Discord OAuth2 callback")
		return c.Status(fiber.StatusBadRequest).SendString("Invalid callback parameters")
	}

	// Verify state
	if !s.takeState(state) {
		log.Error().Str("state", state).Msg("Invalid or expired state token")
		return c.Status(fiber.StatusBadRequest).SendString("Invalid state token")
	}

	// Handle callback
	ctx := context.Background()

	identity, err := s.provider.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("Discord OAuth2 authentication failed")
		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	// Map the Discord identity to a dashboard account
	user, err := s.accounts.UpsertExternal(identity.ID, identity.Username, models.AuthSourceDiscord)
	if err != nil {
		log.Error().Err(err).Str("discord_id", identity.ID).Msg("Failed to map Discord identity to account")
		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	// Create session
	if err := login.StartSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("Failed to establish session")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	log.Info().Str("username", user.Username).Msg("User logged in successfully via Discord")

	return c.Redirect(dashboard.Path)
}

// storeState records a freshly issued state token.
func (s *Service) storeState(state string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.stateStore[state] = time.Now().Add(stateTTL)
}

// takeState consumes a state token. It reports whether the token was issued
// by this process and has not expired. Tokens are single use.
func (s *Service) takeState(state string) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	expiration, exists := s.stateStore[state]
	if !exists {
		return false
	}

	delete(s.stateStore, state)

	return time.Now().Before(expiration)
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.stateMu.Lock()

		now := time.Now()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}

		s.stateMu.Unlock()
	}
}
