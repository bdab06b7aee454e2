package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

const tokenBytes = 32

// Options configures a Service.
type Options struct {
	SessionTTL time.Duration
	// OAuth enables Google sign-in when set.
	OAuth *oauth2.Config
	// UserInfoURL overrides the OpenID userinfo endpoint.
	UserInfoURL string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Now        func() time.Time
}

// Service implements Provider over an AccountStore and a SessionStore.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	opts     Options
}

var _ Provider = (*Service)(nil)

// NewService creates a new Service.
func NewService(accounts AccountStore, sessions SessionStore, opts Options) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 14 * 24 * time.Hour
	}
	if opts.UserInfoURL == "" {
		opts.UserInfoURL = GoogleUserInfoURL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{accounts: accounts, sessions: sessions, opts: opts}
}

// SignUp creates a password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, authErr(CodeWeakPassword,
			fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to hash password: %w", err))
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        addr,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, authErr(CodeEmailInUse, "The email address is already in use by another account.")
		}
		return nil, unavailable(err)
	}

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(account.ID)).
		Msg("Account created")

	return s.startSession(ctx, account)
}

// SignIn checks a password and starts a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	addr, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	wrong := authErr(CodeWrongCredentials, "The email or password is incorrect.")
	account, err := s.accounts.GetByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, wrong
		}
		return nil, unavailable(err)
	}
	if account.PasswordHash == "" {
		return nil, wrong
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		logger.Log.Debug().
			Str("user_hash", logger.HashUserID(account.ID)).
			Msg("Password mismatch")
		return nil, wrong
	}

	return s.startSession(ctx, account)
}

// SignOut ends the session. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, hashToken(token)); err != nil {
		return unavailable(err)
	}
	return nil
}

// CurrentSession resolves a token to its session.
func (s *Service) CurrentSession(ctx context.Context, token string) (*Session, error) {
	expired := authErr(CodeSessionExpired, "Your session has expired. Please sign in again.")
	if token == "" {
		return nil, expired
	}

	rec, err := s.sessions.Get(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, expired
		}
		return nil, unavailable(err)
	}
	if rec.Expired(s.opts.Now()) {
		return nil, expired
	}

	account, err := s.accounts.GetByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, expired
		}
		return nil, unavailable(err)
	}

	return &Session{Token: token, User: account.User(), ExpiresAt: rec.ExpiresAt}, nil
}

// PurgeExpired deletes expired sessions.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func (s *Service) startSession(ctx context.Context, account *models.Account) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, unavailable(err)
	}

	rec := &models.SessionRecord{
		TokenHash: hashToken(token),
		AccountID: account.ID,
		ExpiresAt: s.opts.Now().Add(s.opts.SessionTTL),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, unavailable(err)
	}

	return &Session{Token: token, User: account.User(), ExpiresAt: rec.ExpiresAt}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", authErr(CodeInvalidEmail, "The email address is badly formatted.")
	}
	return strings.ToLower(addr.Address), nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
