// Package warning provides CRUD operations for moderation warnings.
package warning

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	guildUserQueryPattern = "guild_id = ? AND user_id = ?"
	activeQueryPattern    = "expires_at IS NULL OR expires_at > ?"
)

var (
	// ErrWarningNotFound is returned when a warning is not found.
	ErrWarningNotFound = errors.New("warning not found")
	// ErrGuildIDEmpty is returned when the guild id is empty.
	ErrGuildIDEmpty = errors.New("guild id cannot be empty")
	// ErrUserIDEmpty is returned when the user id is empty.
	ErrUserIDEmpty = errors.New("user id cannot be empty")
	// ErrReasonEmpty is returned when attempting to warn without a reason.
	ErrReasonEmpty = errors.New("warning reason cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Add issues a new warning. A nil expiry keeps the warning active forever.
func Add(db *gorm.DB, guildID, userID, moderatorID, reason string, expiresAt *time.Time) (*models.Warning, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if userID == "" {
		return nil, ErrUserIDEmpty
	}
	if reason == "" {
		return nil, ErrReasonEmpty
	}

	warning := &models.Warning{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		ExpiresAt:   expiresAt,
	}

	result := db.Create(warning)
	if result.Error != nil {
		return nil, result.Error
	}

	return warning, nil
}

// ListByUser returns a member's warnings, oldest first.
func ListByUser(db *gorm.DB, guildID, userID string) ([]models.Warning, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if userID == "" {
		return nil, ErrUserIDEmpty
	}

	var warnings []models.Warning
	result := db.Where(guildUserQueryPattern, guildID, userID).
		Order("created_at ASC, id ASC").
		Find(&warnings)
	if result.Error != nil {
		return nil, result.Error
	}

	return warnings, nil
}

// CountActive returns how many of a member's warnings still count at now.
func CountActive(db *gorm.DB, guildID, userID string, now time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if guildID == "" {
		return 0, ErrGuildIDEmpty
	}
	if userID == "" {
		return 0, ErrUserIDEmpty
	}

	var count int64
	result := db.Model(&models.Warning{}).
		Where(guildUserQueryPattern, guildID, userID).
		Where(activeQueryPattern, now).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// Count returns how many warnings were ever issued in a guild, expired ones
// included.
func Count(db *gorm.DB, guildID string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if guildID == "" {
		return 0, ErrGuildIDEmpty
	}

	var count int64
	result := db.Model(&models.Warning{}).
		Where("guild_id = ?", guildID).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// Remove deletes a warning by id.
func Remove(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.Warning{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWarningNotFound
	}

	return nil
}

// ClearUser deletes all of a member's warnings and returns how many went.
func ClearUser(db *gorm.DB, guildID, userID string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if guildID == "" {
		return 0, ErrGuildIDEmpty
	}
	if userID == "" {
		return 0, ErrUserIDEmpty
	}

	result := db.Where(guildUserQueryPattern, guildID, userID).Delete(&models.Warning{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// GetAll retrieves every warning, for snapshot export.
func GetAll(db *gorm.DB) ([]models.Warning, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var warnings []models.Warning
	result := db.Find(&warnings)
	if result.Error != nil {
		return nil, result.Error
	}

	return warnings, nil
}
