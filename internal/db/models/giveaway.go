package models

import "time"

// Giveaway represents one running or finished giveaway.
// The giveaway lives as a message in a guild channel; members enter through
// the message and winners are drawn from the entry rows when it ends.
type Giveaway struct {
	// ID is the unique identifier for the giveaway.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild the giveaway runs in.
	GuildID string `gorm:"size:32;not null;index"`
	// ChannelID is the channel holding the giveaway message.
	ChannelID string `gorm:"size:32;not null"`
	// MessageID is the giveaway message members react to.
	MessageID string `gorm:"size:32;uniqueIndex"`
	// Prize is the prize description shown in the giveaway message.
	Prize string `gorm:"size:255;not null"`
	// WinnerCount is how many winners are drawn when the giveaway ends.
	WinnerCount int `gorm:"not null;default:1"`
	// HostID is the identity that started the giveaway.
	HostID string `gorm:"size:32;not null"`
	// EndsAt is when the giveaway closes for entries.
	EndsAt time.Time `gorm:"not null"`
	// Ended marks a giveaway whose winners have been drawn.
	Ended bool `gorm:"not null;default:false"`
	// CreatedAt is the timestamp when the giveaway was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the giveaway was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Giveaway model.
func (Giveaway) TableName() string {
	return "giveaways"
}

// GiveawayEntry represents one member's entry into a giveaway.
type GiveawayEntry struct {
	ID         uint64 `gorm:"primaryKey"`
	GiveawayID uint64 `gorm:"not null;uniqueIndex:idx_giveaway_entry"`
	UserID     string `gorm:"size:32;not null;uniqueIndex:idx_giveaway_entry"`
	CreatedAt  time.Time
}

// TableName specifies the database table name for the GiveawayEntry model.
func (GiveawayEntry) TableName() string {
	return "giveaway_entries"
}
