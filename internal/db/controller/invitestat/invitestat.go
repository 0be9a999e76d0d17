// Package invitestat provides CRUD operations for invite counters and the
// join attribution rows that tie an invited member back to their inviter.
package invitestat

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	guildUserQueryPattern    = "guild_id = ? AND user_id = ?"
	guildQueryPattern        = "guild_id = ?"
	guildInvitedQueryPattern = "guild_id = ? AND invited_user_id = ?"
	totalOrderPattern        = "(regular + bonus - fake - left) DESC"
)

var (
	// ErrInviteStatNotFound is returned when no counters exist for a member.
	ErrInviteStatNotFound = errors.New("invite stats not found")
	// ErrInviteUseNotFound is returned when no join attribution exists for a member.
	ErrInviteUseNotFound = errors.New("invite use not found")
	// ErrGuildIDEmpty is returned when the guild id is empty.
	ErrGuildIDEmpty = errors.New("guild id cannot be empty")
	// ErrUserIDEmpty is returned when the user id is empty.
	ErrUserIDEmpty = errors.New("user id cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a member's invite counters.
func Get(db *gorm.DB, guildID, userID string) (*models.InviteStat, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if userID == "" {
		return nil, ErrUserIDEmpty
	}

	var stat models.InviteStat
	result := db.Where(guildUserQueryPattern, guildID, userID).First(&stat)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInviteStatNotFound
		}
		return nil, result.Error
	}

	return &stat, nil
}

// GetOrCreate retrieves a member's counters, creating a zeroed row if needed.
func GetOrCreate(db *gorm.DB, guildID, userID string) (*models.InviteStat, error) {
	stat, err := Get(db, guildID, userID)
	if errors.Is(err, ErrInviteStatNotFound) {
		stat = &models.InviteStat{GuildID: guildID, UserID: userID}

		result := db.Create(stat)
		if result.Error != nil {
			return nil, result.Error
		}

		return stat, nil
	}
	if err != nil {
		return nil, err
	}

	return stat, nil
}

// Add adjusts a member's counters by the given deltas.
func Add(db *gorm.DB, guildID, userID string, regular, fake, bonus, left int) (*models.InviteStat, error) {
	stat, err := GetOrCreate(db, guildID, userID)
	if err != nil {
		return nil, err
	}

	stat.Regular += regular
	stat.Fake += fake
	stat.Bonus += bonus
	stat.Left += left

	result := db.Save(stat)
	if result.Error != nil {
		return nil, result.Error
	}

	return stat, nil
}

// ResetUser zeroes a member's counters.
func ResetUser(db *gorm.DB, guildID, userID string) error {
	stat, err := Get(db, guildID, userID)
	if err != nil {
		return err
	}

	stat.Regular = 0
	stat.Fake = 0
	stat.Bonus = 0
	stat.Left = 0

	result := db.Save(stat)

	return result.Error
}

// Top returns the guild's inviters ordered by effective invite count.
func Top(db *gorm.DB, guildID string, limit int) ([]models.InviteStat, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}

	var stats []models.InviteStat
	result := db.Where(guildQueryPattern, guildID).
		Order(totalOrderPattern).
		Limit(limit).
		Find(&stats)
	if result.Error != nil {
		return nil, result.Error
	}

	return stats, nil
}

// GetAll retrieves every counter row, for snapshot export.
func GetAll(db *gorm.DB) ([]models.InviteStat, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var stats []models.InviteStat
	result := db.Find(&stats)
	if result.Error != nil {
		return nil, result.Error
	}

	return stats, nil
}

// TrackUse records which invite a joining member used and credits the
// inviter with a regular invite. A rejoin overwrites the previous
// attribution row instead of stacking a second one.
func TrackUse(db *gorm.DB, guildID, invitedUserID, inviterID, inviteCode string, joinedAt time.Time) (*models.InviteStat, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if invitedUserID == "" || inviterID == "" {
		return nil, ErrUserIDEmpty
	}

	var use models.InviteUse
	result := db.Where(guildInvitedQueryPattern, guildID, invitedUserID).First(&use)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}

		use = models.InviteUse{GuildID: guildID, InvitedUserID: invitedUserID}
	}

	use.InviterID = inviterID
	use.InviteCode = inviteCode
	use.JoinedAt = joinedAt

	if result := db.Save(&use); result.Error != nil {
		return nil, result.Error
	}

	return Add(db, guildID, inviterID, 1, 0, 0, 0)
}

// InviterOf returns the attribution row for an invited member.
func InviterOf(db *gorm.DB, guildID, invitedUserID string) (*models.InviteUse, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if invitedUserID == "" {
		return nil, ErrUserIDEmpty
	}

	var use models.InviteUse
	result := db.Where(guildInvitedQueryPattern, guildID, invitedUserID).First(&use)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInviteUseNotFound
		}
		return nil, result.Error
	}

	return &use, nil
}

// RecordLeave charges a leaver back to their inviter and returns the
// inviter id. Members with no attribution return ErrInviteUseNotFound.
func RecordLeave(db *gorm.DB, guildID, userID string) (string, error) {
	use, err := InviterOf(db, guildID, userID)
	if err != nil {
		return "", err
	}

	if _, err := Add(db, guildID, use.InviterID, 0, 0, 0, 1); err != nil {
		return "", err
	}

	return use.InviterID, nil
}
