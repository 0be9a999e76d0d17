package daemon

import (
	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/config"
	"github.com/MyteScripts/gridbot/internal/db/models"
)

func seed(_ *config.Config, db *gorm.DB) {
	// Seed initial data if user table is empty

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		// Create default admin user
		db.Create(
			&models.User{
				Username:   "admin",
				Password:   models.HashPassword("changeme"),
				Active:     true,
				IsAdmin:    true,
				AuthSource: models.AuthSourceLocal,
			},
		)
	}
}
