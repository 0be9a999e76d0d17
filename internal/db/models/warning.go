package models

import "time"

// Warning represents one moderation warning issued against a guild member.
// Warnings can carry an expiry; expired warnings stay on record but are not
// counted as active.
type Warning struct {
	// ID is the unique identifier for the warning.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild the warning was issued in.
	GuildID string `gorm:"size:32;not null;index:idx_warning_member"`
	// UserID is the warned member.
	UserID string `gorm:"size:32;not null;index:idx_warning_member"`
	// ModeratorID is the identity that issued the warning.
	ModeratorID string `gorm:"size:32;not null"`
	// Reason is the moderator supplied reason text.
	Reason string `gorm:"size:1024"`
	// ExpiresAt is when the warning stops counting as active (nil = never).
	ExpiresAt *time.Time
	// CreatedAt is the timestamp when the warning was issued (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Warning model.
func (Warning) TableName() string {
	return "warnings"
}

// Active reports whether the warning still counts at the given time.
func (w *Warning) Active(now time.Time) bool {
	return w.ExpiresAt == nil || w.ExpiresAt.After(now)
}
