package auth

import "errors"

var (
	// ErrOAuthDisabled is returned when Discord OAuth2 login is disabled via configuration.
	ErrOAuthDisabled = errors.New("discord oauth2 authentication is disabled")

	// ErrStateMismatch is returned when the OAuth2 callback state does not match the
	// state token issued at the start of the flow. This indicates a stale or forged callback.
	ErrStateMismatch = errors.New("oauth2 state token mismatch")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserNameOrEmailExists is returned when attempting to create a user with a username or email that already exists.
	ErrUserNameOrEmailExists = errors.New("user with username or email already exists")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenMissingIdentity is returned when a deep link token validates
	// but carries no user id claim.
	ErrTokenMissingIdentity = errors.New("web token has no user id")
)
