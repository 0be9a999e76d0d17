package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MyteScripts/gridbot/internal/db/models"
)

// Service maps externally authenticated visitors to dashboard accounts.
// Discord OAuth2 logins and webtoken deep links both land here: the Discord
// user id is the stable key, the dashboard account is created on first login.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// UpsertExternal returns the dashboard account bound to the given Discord
// user id, creating it when the member logs in for the first time. Accounts
// created this way carry no password and can only log in through Discord
// OAuth2 or a webtoken.
func (s *Service) UpsertExternal(externalID, username string, source models.AuthSource) (*models.User, error) {
	if externalID == "" {
		return nil, ErrTokenMissingIdentity
	}

	var user models.User

	err := s.db.Where("external_id = ?", externalID).First(&user).Error

	switch {
	case err == nil:
		if !user.Active {
			return nil, ErrUserAccountDisabled
		}

		return s.refresh(&user, username)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First login, fall through to create the account.
	default:
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	user = models.User{
		Active:     true,
		Username:   s.freeUsername(username, externalID),
		AuthSource: source,
		ExternalID: externalID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &user, nil
}

// GetByExternalID retrieves the account bound to a Discord user id.
func (s *Service) GetByExternalID(externalID string) (*models.User, error) {
	var user models.User

	err := s.db.Where("external_id = ?", externalID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &user, nil
}

// refresh records the login and follows Discord username changes. A rename
// that collides with another account keeps the old dashboard name.
func (s *Service) refresh(user *models.User, username string) (*models.User, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}

	if username != "" && username != user.Username && !s.usernameTaken(username, user.ID) {
		updates["username"] = username
		user.Username = username
	}

	if err := s.db.Model(&models.User{}).Where(whereID, user.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to refresh account: %w", err)
	}

	return user, nil
}

// freeUsername picks a dashboard name for a new account. Discord usernames
// can collide with existing local accounts, so a taken name is suffixed with
// the Discord user id, which is unique.
func (s *Service) freeUsername(username, externalID string) string {
	if username == "" {
		return "member-" + externalID
	}

	if s.usernameTaken(username, 0) {
		return username + "-" + externalID
	}

	return username
}

func (s *Service) usernameTaken(username string, excludeID uint64) bool {
	var count int64

	query := s.db.Model(&models.User{}).Where("username = ?", username)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.Count(&count).Error; err != nil {
		// Treat a failed lookup as taken so the caller falls back to the
		// suffixed name and lets the unique constraint have the final say.
		return true
	}

	return count > 0
}
