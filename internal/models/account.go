package models

import "time"

// Account is a stored identity. PasswordHash is empty for accounts that
// only sign in through Google; GoogleSubject is empty until linked.
type Account struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	GoogleSubject string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User returns the public identity of the account.
func (a *Account) User() User {
	return User{ID: a.ID, Email: a.Email, Name: a.Name}
}

// SessionRecord is a stored session. Only the hash of the token is kept.
type SessionRecord struct {
	TokenHash string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *SessionRecord) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
