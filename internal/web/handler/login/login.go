package login

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/auth"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TokenPath is the deep link path the /webtoken command points members at.
	TokenPath = Path + "/token"

	// TemplateName is the login page template.
	TemplateName = "login"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	local    *auth.LocalProvider
	accounts *auth.Service
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New("app, cfg or db is nil")
	}

	s.db = db
	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)
	s.accounts = auth.NewService(db)

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
		router.Get("/token", s.Token)
	})

	return nil
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(TemplateName, s.loginContext(nil))
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(models.User)

	if err := c.BodyParser(form); err != nil {
		return s.renderError(c, ErrInvalidFormData)
	}

	user, err := s.local.Authenticate(form.Username, form.Password)

	switch {
	case err == nil:
		// authenticated
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return s.renderError(c, ErrAccountInactive)
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		return s.renderError(c, ErrInvalidCredentials)
	default:
		log.Error().Err(err).Msg("local authentication failed")
		return s.renderError(c, ErrInternalServerError)
	}

	if err := StartSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("failed to establish session")
		return s.renderError(c, ErrInternalServerError)
	}

	return c.Redirect("/dashboard")
}

// Token handles the deep link login issued by the /webtoken command.
func (s *Service) Token(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		return s.renderError(c, ErrMissingToken)
	}

	claims, err := auth.VerifyToken([]byte(s.cfg.Webserver.TokenSecret), tokenStr)
	if err != nil {
		log.Warn().Err(err).Msg("web token rejected")
		return s.renderError(c, ErrTokenRejected)
	}

	user, err := s.accounts.UpsertExternal(claims.UserID, claims.Username, models.AuthSourceToken)
	if err != nil {
		if errors.Is(err, auth.ErrUserAccountDisabled) {
			return s.renderError(c, ErrAccountInactive)
		}

		log.Error().Err(err).Str("user_id", claims.UserID).Msg("failed to map web token to account")

		return s.renderError(c, ErrInternalServerError)
	}

	if err := StartSession(c, s.cfg, *user); err != nil {
		log.Error().Err(err).Msg("failed to establish session")
		return s.renderError(c, ErrInternalServerError)
	}

	log.Info().Str("username", user.Username).Msg("user logged in via web token")

	return c.Redirect("/dashboard")
}

// StartSession writes a fresh session for the user and sets the login cookie.
// The caller decides where to redirect afterwards.
func StartSession(c *fiber.Ctx, cfg *config.Config, user models.User) error {
	sessionID, err := session.GenerateSessionID()
	if err != nil {
		return fmt.Errorf("failed to generate session id: %w", err)
	}

	userSession := &session.Data{
		User: user,
	}

	if err := userSession.Write(sessionID, cfg.Webserver.Session.ExpiryTime); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	// set login cookie
	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax", // TODO: make this configurable
	}

	if cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return nil
}

// loginContext builds the render context for the login template.
func (s *Service) loginContext(renderErr error) fiber.Map {
	context := fiber.Map{
		"local_db_enabled": true,
		"discord_enabled":  s.cfg.Webserver.OAuth.Enabled,
	}

	if renderErr != nil {
		context["error"] = renderErr.Error()
	}

	return context
}

func (s *Service) renderError(c *fiber.Ctx, renderErr error) error {
	return c.Render(TemplateName, s.loginContext(renderErr))
}
