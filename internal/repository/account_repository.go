package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/trackify/internal/database"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// AccountRepository handles account database operations.
type AccountRepository struct {
	db database.PGXDB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db database.PGXDB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, name, COALESCE(password_hash, ''), COALESCE(google_subject, ''), created_at, updated_at`

// Create inserts a new account. Emails are compared lowercased.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	account.Email = strings.ToLower(account.Email)
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (id, email, name, password_hash, google_subject)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING created_at, updated_at
	`, account.ID, account.Email, account.Name, account.PasswordHash, account.GoogleSubject).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
}

// GetByGoogleSubject retrieves the account linked to a Google subject.
func (r *AccountRepository) GetByGoogleSubject(ctx context.Context, subject string) (*models.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE google_subject = $1`, subject)
}

// LinkGoogle attaches a Google subject to an existing account.
func (r *AccountRepository) LinkGoogle(ctx context.Context, id, subject string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET google_subject = $2, updated_at = NOW() WHERE id = $1
	`, id, subject)
	if err != nil {
		return fmt.Errorf("failed to link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg string) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.GoogleSubject, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}
