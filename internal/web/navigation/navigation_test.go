package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewContext(t *testing.T) {
	ctx := NewContext("Leaderboard", "leaderboard", "leaderboard")

	assert.Equal(t, "Leaderboard", ctx.PageTitle)
	assert.Equal(t, "leaderboard", ctx.ActiveSection)
	assert.Equal(t, "leaderboard", ctx.ActivePage)
	assert.NotNil(t, ctx.Breadcrumbs)
	assert.Empty(t, ctx.Breadcrumbs)
	assert.False(t, ctx.ShowAdmin)
}

func TestContext_AddBreadcrumb(t *testing.T) {
	ctx := NewContext("Command Access", "admin", "access")

	// Add first breadcrumb
	ctx.AddBreadcrumb("Home", "/dashboard", false)
	assert.Len(t, ctx.Breadcrumbs, 1)
	assert.Equal(t, "Home", ctx.Breadcrumbs[0].Title)
	assert.Equal(t, "/dashboard", ctx.Breadcrumbs[0].URL)
	assert.False(t, ctx.Breadcrumbs[0].Active)

	// Add second breadcrumb
	ctx.AddBreadcrumb("Admin", "#", false)
	assert.Len(t, ctx.Breadcrumbs, 2)
	assert.Equal(t, "Admin", ctx.Breadcrumbs[1].Title)

	// Add active breadcrumb
	ctx.AddBreadcrumb("Command Access", "/admin/access", true)
	assert.Len(t, ctx.Breadcrumbs, 3)
	assert.True(t, ctx.Breadcrumbs[2].Active)
}

func TestContext_AddBreadcrumb_Chaining(t *testing.T) {
	ctx := NewContext("Accounts", "admin", "user").
		AddBreadcrumb("Home", "/dashboard", false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Accounts", "/admin/user", true)

	assert.Len(t, ctx.Breadcrumbs, 3)
	assert.Equal(t, "Home", ctx.Breadcrumbs[0].Title)
	assert.Equal(t, "Admin", ctx.Breadcrumbs[1].Title)
	assert.Equal(t, "Accounts", ctx.Breadcrumbs[2].Title)
	assert.True(t, ctx.Breadcrumbs[2].Active)
}

func TestContext_WithAdmin(t *testing.T) {
	ctx := NewContext("Dashboard", "dashboard", "dashboard").WithAdmin(true)
	assert.True(t, ctx.ShowAdmin)

	ctx.WithAdmin(false)
	assert.False(t, ctx.ShowAdmin)

	// chains like the other builders
	chained := NewContext("Dashboard", "dashboard", "dashboard").
		WithAdmin(true).
		AddBreadcrumb("Home", "/dashboard", true)
	assert.True(t, chained.ShowAdmin)
	assert.Len(t, chained.Breadcrumbs, 1)
}

func TestContext_IsActive(t *testing.T) {
	ctx := NewContext("Command Access", "admin", "access")

	// Should return true when both section and page match
	assert.True(t, ctx.IsActive("admin", "access"))

	// Should return false when section doesn't match
	assert.False(t, ctx.IsActive("dashboard", "access"))

	// Should return false when page doesn't match
	assert.False(t, ctx.IsActive("admin", "user"))

	// Should return false when neither match
	assert.False(t, ctx.IsActive("dashboard", "main"))
}

func TestContext_IsSectionActive(t *testing.T) {
	ctx := NewContext("Command Access", "admin", "access")

	// Should return true when section matches
	assert.True(t, ctx.IsSectionActive("admin"))

	// Should return false when section doesn't match
	assert.False(t, ctx.IsSectionActive("dashboard"))
	assert.False(t, ctx.IsSectionActive("leaderboard"))
}

func TestBreadcrumbItem(t *testing.T) {
	item := BreadcrumbItem{
		Title:  "Test",
		URL:    "/test",
		Active: true,
	}

	assert.Equal(t, "Test", item.Title)
	assert.Equal(t, "/test", item.URL)
	assert.True(t, item.Active)
}
