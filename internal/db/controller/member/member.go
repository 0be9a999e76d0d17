// Package member provides CRUD operations for guild member progression records.
package member

import (
	"errors"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

const (
	guildUserQueryPattern = "guild_id = ? AND user_id = ?"
	guildQueryPattern     = "guild_id = ?"
)

var (
	// ErrMemberNotFound is returned when a member record is not found.
	ErrMemberNotFound = errors.New("member not found")
	// ErrGuildIDEmpty is returned when the guild id is empty.
	ErrGuildIDEmpty = errors.New("guild id cannot be empty")
	// ErrUserIDEmpty is returned when the user id is empty.
	ErrUserIDEmpty = errors.New("user id cannot be empty")
	// ErrInsufficientFunds is returned when a coin withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient coin balance")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Get retrieves a member record by guild and user id.
func Get(db *gorm.DB, guildID, userID string) (*models.Member, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}
	if userID == "" {
		return nil, ErrUserIDEmpty
	}

	var member models.Member
	result := db.Where(guildUserQueryPattern, guildID, userID).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, result.Error
	}

	return &member, nil
}

// GetOrCreate retrieves a member record, creating it at level 1 when the
// member has no record yet. A non-empty username refreshes the stored one.
func GetOrCreate(db *gorm.DB, guildID, userID, username string) (*models.Member, error) {
	member, err := Get(db, guildID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		member = &models.Member{
			GuildID:  guildID,
			UserID:   userID,
			Username: username,
			Level:    1,
		}

		result := db.Create(member)
		if result.Error != nil {
			return nil, result.Error
		}

		return member, nil
	}
	if err != nil {
		return nil, err
	}

	if username != "" && member.Username != username {
		member.Username = username
		if result := db.Save(member); result.Error != nil {
			return nil, result.Error
		}
	}

	return member, nil
}

// Update persists a modified member record.
func Update(db *gorm.DB, member *models.Member) error {
	if db == nil {
		return ErrDBNil
	}
	if member == nil {
		return ErrMemberNotFound
	}

	result := db.Save(member)

	return result.Error
}

// AddCoins adjusts a member's coin balance by delta, creating the record if
// needed. A withdrawal below zero fails with ErrInsufficientFunds and leaves
// the balance untouched.
func AddCoins(db *gorm.DB, guildID, userID, username string, delta int64) (*models.Member, error) {
	member, err := GetOrCreate(db, guildID, userID, username)
	if err != nil {
		return nil, err
	}

	if member.Coins+delta < 0 {
		return nil, ErrInsufficientFunds
	}

	member.Coins += delta
	if result := db.Save(member); result.Error != nil {
		return nil, result.Error
	}

	return member, nil
}

// SetXP overwrites a member's XP, creating the record if needed.
func SetXP(db *gorm.DB, guildID, userID string, xp int64) (*models.Member, error) {
	member, err := GetOrCreate(db, guildID, userID, "")
	if err != nil {
		return nil, err
	}

	member.XP = xp
	if result := db.Save(member); result.Error != nil {
		return nil, result.Error
	}

	return member, nil
}

// SetLevel overwrites a member's level, creating the record if needed.
func SetLevel(db *gorm.DB, guildID, userID string, level int) (*models.Member, error) {
	member, err := GetOrCreate(db, guildID, userID, "")
	if err != nil {
		return nil, err
	}

	member.Level = level
	if result := db.Save(member); result.Error != nil {
		return nil, result.Error
	}

	return member, nil
}

// TopByXP returns a leaderboard page ordered by level, then XP.
func TopByXP(db *gorm.DB, guildID string, limit, offset int) ([]models.Member, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}

	var members []models.Member
	result := db.Where(guildQueryPattern, guildID).
		Order("level DESC, xp DESC").
		Limit(limit).
		Offset(offset).
		Find(&members)
	if result.Error != nil {
		return nil, result.Error
	}

	return members, nil
}

// TopByCoins returns a leaderboard page ordered by coin balance.
func TopByCoins(db *gorm.DB, guildID string, limit, offset int) ([]models.Member, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if guildID == "" {
		return nil, ErrGuildIDEmpty
	}

	var members []models.Member
	result := db.Where(guildQueryPattern, guildID).
		Order("coins DESC").
		Limit(limit).
		Offset(offset).
		Find(&members)
	if result.Error != nil {
		return nil, result.Error
	}

	return members, nil
}

// Rank returns a member's one-based leaderboard position within the guild.
func Rank(db *gorm.DB, guildID, userID string) (int, error) {
	member, err := Get(db, guildID, userID)
	if err != nil {
		return 0, err
	}

	var ahead int64
	result := db.Model(&models.Member{}).
		Where(guildQueryPattern, guildID).
		Where("level > ? OR (level = ? AND xp > ?)", member.Level, member.Level, member.XP).
		Count(&ahead)
	if result.Error != nil {
		return 0, result.Error
	}

	return int(ahead) + 1, nil
}

// Count returns the number of member records in a guild.
func Count(db *gorm.DB, guildID string) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}
	if guildID == "" {
		return 0, ErrGuildIDEmpty
	}

	var count int64
	result := db.Model(&models.Member{}).Where(guildQueryPattern, guildID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// Totals returns the summed XP and coins across a guild, for the dashboard.
func Totals(db *gorm.DB, guildID string) (xp, coins int64, err error) {
	if db == nil {
		return 0, 0, ErrDBNil
	}
	if guildID == "" {
		return 0, 0, ErrGuildIDEmpty
	}

	row := db.Model(&models.Member{}).
		Where(guildQueryPattern, guildID).
		Select("COALESCE(SUM(xp), 0), COALESCE(SUM(coins), 0)").
		Row()
	if err = row.Scan(&xp, &coins); err != nil {
		return 0, 0, err
	}

	return xp, coins, nil
}

// GetAll retrieves every member record, for snapshot export.
func GetAll(db *gorm.DB) ([]models.Member, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var members []models.Member
	result := db.Find(&members)
	if result.Error != nil {
		return nil, result.Error
	}

	return members, nil
}
