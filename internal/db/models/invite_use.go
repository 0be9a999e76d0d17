package models

import "time"

// InviteUse records which invite a member used to join a guild. The row is
// what lets a later leave be charged back to the original inviter.
type InviteUse struct {
	// ID is the unique identifier for the use row.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild the member joined.
	GuildID string `gorm:"size:32;not null;uniqueIndex:idx_guild_invited"`
	// InvitedUserID is the member who joined.
	InvitedUserID string `gorm:"size:32;not null;uniqueIndex:idx_guild_invited"`
	// InviterID is the member whose invite was used.
	InviterID string `gorm:"size:32;not null;index"`
	// InviteCode is the invite code that was used.
	InviteCode string `gorm:"size:64"`
	// JoinedAt is the timestamp of the join.
	JoinedAt time.Time `gorm:"not null"`
}

// TableName specifies the database table name for the InviteUse model.
func (InviteUse) TableName() string {
	return "invite_uses"
}
