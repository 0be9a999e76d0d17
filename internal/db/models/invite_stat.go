package models

import "time"

// InviteStat represents one member's invite counters in a guild.
// The effective invite count is regular + bonus - fake - left.
type InviteStat struct {
	// ID is the unique identifier for the stat row.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild the counters are scoped to.
	GuildID string `gorm:"size:32;not null;uniqueIndex:idx_guild_inviter"`
	// UserID is the inviting member.
	UserID string `gorm:"size:32;not null;uniqueIndex:idx_guild_inviter"`
	// Regular counts members who joined through this member's invites.
	Regular int `gorm:"not null;default:0"`
	// Fake counts joins flagged as fake (rejoined or left immediately).
	Fake int `gorm:"not null;default:0"`
	// Bonus counts invites granted manually by admins.
	Bonus int `gorm:"not null;default:0"`
	// Left counts invited members who left the guild again.
	Left int `gorm:"not null;default:0"`
	// CreatedAt is the timestamp when the row was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the row was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the InviteStat model.
func (InviteStat) TableName() string {
	return "invite_stats"
}

// Total returns the effective invite count.
func (s *InviteStat) Total() int {
	return s.Regular + s.Bonus - s.Fake - s.Left
}
