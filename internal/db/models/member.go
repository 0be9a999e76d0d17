package models

import "time"

// Member represents one guild member's progression record.
// The same platform user appears once per guild they share with the bot;
// XP, level and coin balances never cross guild boundaries.
type Member struct {
	// ID is the unique identifier for the member row.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild this record is scoped to.
	GuildID string `gorm:"size:32;not null;uniqueIndex:idx_guild_member"`
	// UserID is the platform user id of the member.
	UserID string `gorm:"size:32;not null;uniqueIndex:idx_guild_member"`
	// Username is the last seen display name, denormalized for leaderboards.
	Username string `gorm:"size:100"`
	// XP is the accumulated experience within the current level progression.
	XP int64 `gorm:"not null;default:0"`
	// Level is the current level. New members start at level 1.
	Level int `gorm:"not null;default:1"`
	// Coins is the spendable currency balance.
	Coins int64 `gorm:"not null;default:0"`
	// MessageCount counts the messages that were considered for XP.
	MessageCount int64 `gorm:"not null;default:0"`
	// LastWorkAt is when the member last ran the work command (nil if never).
	LastWorkAt *time.Time
	// CreatedAt is the timestamp when the member was first seen (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the member was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Member model.
func (Member) TableName() string {
	return "members"
}
