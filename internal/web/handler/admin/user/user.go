// Package user provides the dashboard account management pages.
package user

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/auth"
	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
	"github.com/MyteScripts/gridbot/internal/web/handler"
	"github.com/MyteScripts/gridbot/internal/web/handler/dashboard"
	authmiddleware "github.com/MyteScripts/gridbot/internal/web/middleware/auth"
	"github.com/MyteScripts/gridbot/internal/web/navigation"
)

const (
	// Path is the base path for account management.
	Path = handler.RootPath + "admin/user"

	// TemplateList is the template for listing accounts.
	TemplateList = "admin/user/list"
	// TemplateForm is the template for creating and updating an account.
	TemplateForm = "admin/user/form"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// Service provides CRUD operations for dashboard accounts.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	local     *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. Every route requires a dashboard admin session.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.local = auth.NewLocalProvider(db)
	s.validator = validator.New()

	// Routes
	app.Get(Path, authmiddleware.RequireAdmin, s.List)
	app.Get(Path+"/new", authmiddleware.RequireAdmin, s.New)
	app.Post(Path, authmiddleware.RequireAdmin, s.Create)
	app.Get(Path+"/:id/edit", authmiddleware.RequireAdmin, s.Edit)
	app.Post(Path+"/:id", authmiddleware.RequireAdmin, s.Update)
	app.Post(Path+"/:id/delete", authmiddleware.RequireAdmin, s.Delete)
}

// List shows accounts with simple pagination, search and a source filter.
func (s *Service) List(c *fiber.Ctx) error {
	nav := listNav()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	search := c.Query("search", "")

	source := c.Query("source", "")
	switch source {
	case "", string(models.AuthSourceLocal), string(models.AuthSourceDiscord), string(models.AuthSourceToken):
	default:
		source = ""
	}

	users, totalCount, err := s.local.ListUsers(
		search,
		models.AuthSource(source),
		nil,
		pageSize,
		(page-1)*pageSize,
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to list accounts")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": nav,
			"Error":      "Failed to load accounts",
			"Search":     search,
			"Source":     source,
		}, handler.BaseLayout)
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if page > totalPages {
		page = totalPages
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation":    nav,
		"Users":         users,
		"CurrentUserID": currentUser(c).ID,
		"Search":        search,
		"Source":        source,
		"Page":          page,
		"PageSize":      pageSize,
		"TotalItems":    totalCount,
		"TotalPages":    totalPages,
		"HasPrev":       page > 1,
		"HasNext":       page < totalPages,
		"PrevPage":      page - 1,
		"NextPage":      page + 1,
	}, handler.BaseLayout)
}

// New shows the creation form. Only local accounts are created here, Discord
// and token accounts create themselves on first login.
func (s *Service) New(c *fiber.Ctx) error {
	nav := formNav("New Account", Path+"/new")

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"User":       models.User{AuthSource: models.AuthSourceLocal, Active: true},
		"IsCreate":   true,
	}, handler.BaseLayout)
}

// Create creates a new local account.
func (s *Service) Create(c *fiber.Ctx) error {
	var in struct {
		Username string `form:"username" validate:"required,min=3,max=100"`
		Email    string `form:"email"    validate:"required,email,max=255"`
		Password string `form:"password" validate:"required,min=8"`
		IsAdmin  bool   `form:"is_admin"`
	}

	if err := c.BodyParser(&in); err != nil {
		return s.renderCreateError(c, fiber.StatusBadRequest, "Invalid form data", models.User{})
	}

	echo := models.User{
		Username:   in.Username,
		Email:      in.Email,
		IsAdmin:    in.IsAdmin,
		Active:     true,
		AuthSource: models.AuthSourceLocal,
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderCreateError(c, fiber.StatusBadRequest, "Please correct the highlighted errors", echo)
	}

	if _, err := s.local.CreateUser(in.Username, in.Email, in.Password, in.IsAdmin); err != nil {
		log.Warn().Err(err).Str("username", in.Username).Msg("account creation failed")

		return s.renderCreateError(c, fiber.StatusBadRequest, "Failed to create account: "+err.Error(), echo)
	}

	log.Info().Str("username", in.Username).Bool("is_admin", in.IsAdmin).Msg("account created")

	return c.Redirect(Path)
}

// Edit shows the edit form for an account.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	user, err := s.local.GetUserByID(uint64(id))
	if err != nil {
		return c.Redirect(Path)
	}

	nav := formNav("Edit Account", Path+"/"+strconv.Itoa(id)+"/edit")

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"User":       *user,
		"IsCreate":   false,
	}, handler.BaseLayout)
}

// Update updates an account. The username is fixed at creation, the form
// covers email, the admin flag, the active flag and an optional password
// reset for local accounts.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	var in struct {
		Email    string `form:"email"    validate:"required,email,max=255"`
		Password string `form:"password" validate:"omitempty,min=8"`
		IsAdmin  bool   `form:"is_admin"`
		Active   bool   `form:"active"`
	}

	if err := c.BodyParser(&in); err != nil {
		return s.renderFormError(c, fiber.StatusBadRequest, "Invalid form data", uint64(id))
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderFormError(c, fiber.StatusBadRequest, "Please correct the highlighted errors", uint64(id))
	}

	user, err := s.local.GetUserByID(uint64(id))
	if err != nil {
		return c.Redirect(Path)
	}

	// An admin cannot lock themselves out from this very page.
	if user.ID == currentUser(c).ID && (!in.IsAdmin || !in.Active) {
		return s.renderFormError(c, fiber.StatusBadRequest,
			"You cannot remove your own admin access", user.ID)
	}

	if err := s.local.UpdateUser(user.ID, in.Email, in.IsAdmin); err != nil {
		return s.renderFormError(c, fiber.StatusBadRequest,
			"Failed to update account: "+err.Error(), user.ID)
	}

	if in.Active != user.Active {
		toggle := s.local.DeactivateUser
		if in.Active {
			toggle = s.local.ActivateUser
		}

		if err := toggle(user.ID); err != nil {
			return s.renderFormError(c, fiber.StatusBadRequest,
				"Failed to update account: "+err.Error(), user.ID)
		}
	}

	if in.Password != "" && user.AuthSource == models.AuthSourceLocal {
		if err := s.local.ResetPassword(user.ID, in.Password); err != nil {
			return s.renderFormError(c, fiber.StatusBadRequest,
				"Failed to reset password: "+err.Error(), user.ID)
		}
	}

	log.Info().Uint64("user_id", user.ID).Bool("is_admin", in.IsAdmin).Msg("account updated")

	return c.Redirect(Path)
}

// Delete removes an account.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return c.Redirect(Path)
	}

	user, err := s.local.GetUserByID(uint64(id))
	if err != nil {
		return c.Redirect(Path)
	}

	// Admin accounts have to be demoted before they can be removed.
	if user.IsAdmin {
		return s.renderListError(c, fiber.StatusForbidden, "Cannot delete admin accounts.")
	}

	if user.ID == currentUser(c).ID {
		return s.renderListError(c, fiber.StatusBadRequest, "You cannot delete your own account.")
	}

	if err := s.local.DeleteUser(user.ID); err != nil {
		return s.renderListError(c, fiber.StatusBadRequest, "Failed to delete account: "+err.Error())
	}

	log.Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("account deleted")

	return c.Redirect(Path)
}

// currentUser returns the logged in account placed in locals by the auth
// middleware. The zero value means no session, which only happens in tests.
func currentUser(c *fiber.Ctx) models.User {
	user, _ := c.Locals("CurrentUser").(models.User)
	return user
}

// listNav and formNav always carry the admin links, the whole section is
// behind RequireAdmin.
func listNav() *navigation.Context {
	return navigation.NewContext("Accounts", "admin", "user").
		WithAdmin(true).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Accounts", Path, true)
}

func formNav(title, url string) *navigation.Context {
	return navigation.NewContext(title, "admin", "user").
		WithAdmin(true).
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Accounts", Path, false).
		AddBreadcrumb(title, url, true)
}

func (s *Service) renderListError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).Render(TemplateList, fiber.Map{
		"Navigation": listNav(),
		"Error":      message,
	}, handler.BaseLayout)
}

func (s *Service) renderCreateError(c *fiber.Ctx, status int, message string, echo models.User) error {
	return c.Status(status).Render(TemplateForm, fiber.Map{
		"Navigation": formNav("New Account", Path+"/new"),
		"User":       echo,
		"IsCreate":   true,
		"Error":      message,
	}, handler.BaseLayout)
}

func (s *Service) renderFormError(c *fiber.Ctx, status int, message string, userID uint64) error {
	data := fiber.Map{
		"Navigation": formNav("Edit Account", Path),
		"IsCreate":   false,
		"Error":      message,
	}

	if user, err := s.local.GetUserByID(userID); err == nil {
		data["User"] = *user
	} else {
		data["User"] = models.User{ID: userID}
	}

	return c.Status(status).Render(TemplateForm, data, handler.BaseLayout)
}
