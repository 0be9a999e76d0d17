package models

import "time"

// Ticket represents one support ticket backed by a private guild channel.
type Ticket struct {
	// ID is the unique identifier for the ticket.
	ID uint64 `gorm:"primaryKey"`
	// GuildID is the guild the ticket belongs to.
	GuildID string `gorm:"size:32;not null;index"`
	// ChannelID is the private channel created for the ticket.
	ChannelID string `gorm:"size:32;not null;uniqueIndex"`
	// OpenerID is the member who opened the ticket.
	OpenerID string `gorm:"size:32;not null"`
	// Subject is the short topic the opener provided.
	Subject string `gorm:"size:255"`
	// Open is true while the ticket channel is active.
	Open bool `gorm:"not null;default:true"`
	// ClosedBy is the identity that closed the ticket (empty while open).
	ClosedBy string `gorm:"size:32"`
	// ClosedAt is when the ticket was closed (nil while open).
	ClosedAt *time.Time
	// CreatedAt is the timestamp when the ticket was opened (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the ticket was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Ticket model.
func (Ticket) TableName() string {
	return "tickets"
}
