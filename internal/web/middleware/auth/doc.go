// Package auth provides the session middleware for the dashboard.
//
// Middleware validates the session cookie on every request, stores the
// logged in account in fiber.Locals("CurrentUser") for handlers and
// templates, and redirects unauthenticated requests to the login page.
// Static assets, the health probe, the metrics endpoint and everything
// under /login (the form, the Discord OAuth2 callback and the webtoken
// deep link) pass through unauthenticated, and requests to the login
// page itself are never redirected there again.
//
// RequireAdmin guards the administration pages behind the account's
// IsAdmin flag and answers 403 for everyone else. It assumes Middleware
// already ran.
//
// Usage:
//
//	app.Use(authmiddleware.Middleware)
//	app.Get(Path, authmiddleware.RequireAdmin, s.Get)
package auth
