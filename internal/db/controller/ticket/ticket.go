// Package ticket provides CRUD operations for support tickets.
package ticket

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	channelQueryPattern   = "channel_id = ?"
	openGuildQueryPattern = "guild_id = ? AND open = ?"
)

var (
	// ErrTicketNotFound is returned when a ticket is not found.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketClosed is returned when closing an already closed ticket.
	ErrTicketClosed = errors.New("ticket already closed")
	// ErrTicketOpenExists is returned when a member already has an open ticket.
	ErrTicketOpenExists = errors.New("member already has an open ticket")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Open records a new ticket backed by the given channel. A member can only
// hold one open ticket per guild at a time.
func Open(db *gorm.DB, guildID, channelID, openerID, subject string) (*models.Ticket, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var existing models.Ticket
	result := db.Where("guild_id = ? AND opener_id = ? AND open = ?", guildID, openerID, true).First(&existing)
	if result.Error == nil {
		return nil, ErrTicketOpenExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	ticket := &models.Ticket{
		GuildID:   guildID,
		ChannelID: channelID,
		OpenerID:  openerID,
		Subject:   subject,
		Open:      true,
	}

	result = db.Create(ticket)
	if result.Error != nil {
		return nil, result.Error
	}

	return ticket, nil
}

// GetByChannel retrieves the ticket backed by a channel.
func GetByChannel(db *gorm.DB, channelID string) (*models.Ticket, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ticket models.Ticket
	result := db.Where(channelQueryPattern, channelID).First(&ticket)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, result.Error
	}

	return &ticket, nil
}

// Close marks the ticket behind a channel as closed.
func Close(db *gorm.DB, channelID, closerID string) (*models.Ticket, error) {
	ticket, err := GetByChannel(db, channelID)
	if err != nil {
		return nil, err
	}
	if !ticket.Open {
		return nil, ErrTicketClosed
	}

	now := time.Now()
	ticket.Open = false
	ticket.ClosedBy = closerID
	ticket.ClosedAt = &now

	result := db.Save(ticket)
	if result.Error != nil {
		return nil, result.Error
	}

	return ticket, nil
}

// ListOpen returns the open tickets of a guild, oldest first.
func ListOpen(db *gorm.DB, guildID string) ([]models.Ticket, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var tickets []models.Ticket
	result := db.Where(openGuildQueryPattern, guildID, true).Order("id ASC").Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}

// CountOpen returns how many tickets are open in a guild.
func CountOpen(db *gorm.DB, guildID string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	result := db.Model(&models.Ticket{}).Where(openGuildQueryPattern, guildID, true).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// Count returns how many tickets have ever been opened, closed ones included.
func Count(db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	result := db.Model(&models.Ticket{}).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}
