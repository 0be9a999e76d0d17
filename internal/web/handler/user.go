package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

// CurrentUser returns the session user the auth middleware stored on the
// request, or a zero user when the request is unauthenticated.
func CurrentUser(c *fiber.Ctx) models.User {
	user, ok := c.Locals("CurrentUser").(models.User)
	if !ok {
		return models.User{}
	}

	return user
}
