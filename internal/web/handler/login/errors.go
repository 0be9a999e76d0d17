// Package login provides HTTP handlers and helpers for user authentication.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrInvalidFormData is returned when the submitted login form cannot be parsed
	// or fails validation.
	ErrInvalidFormData = errors.New("invalid form data")

	// ErrInvalidCredentials is returned when the provided username and/or password
	// are not valid.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountInactive is returned when the account exists but has been disabled.
	ErrAccountInactive = errors.New("account is inactive")

	// ErrMissingToken is returned when the deep link login is called without a token.
	ErrMissingToken = errors.New("missing token")

	// ErrTokenRejected is returned when the deep link token is expired or does not
	// verify against the configured secret.
	ErrTokenRejected = errors.New("the login link is invalid or has expired, ask the bot for a fresh one with /webtoken")

	// ErrInternalServerError is returned for unexpected failures during the login
	// process.
	ErrInternalServerError = errors.New("internal server error")
)
