package repository

import (
	"errors"
)

var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when an account with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)
