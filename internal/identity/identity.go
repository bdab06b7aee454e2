// Package identity is the identity provider collaborator: email/password and
// Google accounts, and the opaque session tokens that represent a sign-in.
package identity

import (
	"context"
	"errors"
	"time"

	"gitlab.com/yelinaung/trackify/internal/models"
)

// Session is a signed-in user. Token is the only credential the client holds.
type Session struct {
	Token     string
	User      models.User
	ExpiresAt time.Time
}

// Provider is what the web layer needs from an identity backend.
type Provider interface {
	SignUp(ctx context.Context, email, password, name string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	FederatedEnabled() bool
	FederatedURL(state string) (string, error)
	SignInFederated(ctx context.Context, code string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentSession(ctx context.Context, token string) (*Session, error)
}

// AccountStore persists accounts. Implemented by repository.AccountRepository
// and MemoryAccounts.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*models.Account, error)
	LinkGoogle(ctx context.Context, id, subject string) error
}

// SessionStore persists sessions. Implemented by repository.SessionRepository
// and MemorySessions.
type SessionStore interface {
	Create(ctx context.Context, s *models.SessionRecord) error
	Get(ctx context.Context, tokenHash string) (*models.SessionRecord, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// Auth error codes.
const (
	CodeEmailInUse         = "email-already-in-use"
	CodeInvalidEmail       = "invalid-email"
	CodeWeakPassword       = "weak-password"
	CodeWrongCredentials   = "wrong-credentials"
	CodeSessionExpired     = "session-expired"
	CodeFederatedDisabled  = "federated-disabled"
	CodeFederatedFailed    = "federated-failed"
	CodeServiceUnavailable = "unavailable"
)

// AuthError is an authentication failure whose Message is shown to the user verbatim.
type AuthError struct {
	Code    string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is an *AuthError with the given code.
func IsCode(err error, code string) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == code
}

func authErr(code, msg string) *AuthError {
	return &AuthError{Code: code, Message: msg}
}

func unavailable(err error) *AuthError {
	return &AuthError{
		Code:    CodeServiceUnavailable,
		Message: "Sign-in is temporarily unavailable. Please try again.",
		Err:     err,
	}
}
