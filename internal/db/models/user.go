package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// AuthSource represents the authentication source for a dashboard account.
// It indicates how the account logs in (local password, Discord OAuth, or a
// webtoken deep link issued by the bot).
type AuthSource string

const (
	// AuthSourceLocal indicates the account authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceDiscord indicates the account authenticates via Discord OAuth2.
	AuthSourceDiscord AuthSource = "discord"
	// AuthSourceToken indicates the account was created through a webtoken deep link.
	AuthSourceToken AuthSource = "token"
)

// User represents a dashboard account.
// Accounts either carry a local Argon2id password or are linked to a Discord
// identity through OAuth or a webtoken. Bot permissions are decided by the
// access resolver, not by dashboard accounts; IsAdmin only gates dashboard
// administration pages.
type User struct {
	// ID is the unique identifier for the account.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the account can log in.
	Active bool
	// Username is the unique username shown in the dashboard.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the account's email address (optional for linked accounts).
	Email string `gorm:"size:255"`
	// Password is the Argon2id hashed password (only used for local authentication).
	Password string `gorm:"size:255"`
	// IsAdmin grants access to the dashboard administration pages.
	IsAdmin bool `gorm:"not null;default:false"`
	// AuthSource indicates how this account authenticates (local, discord, or token).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the Discord user id for linked accounts.
	ExternalID string `gorm:"size:64;index"`
	// CreatedAt is the timestamp when the account was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the account was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating local passwords.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the account's stored
// hashed password. Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
