package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/trackify/internal/database"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// SessionRepository handles session database operations.
type SessionRepository struct {
	db database.PGXDB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db database.PGXDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session.
func (r *SessionRepository) Create(ctx context.Context, s *models.SessionRecord) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (token_hash, account_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, s.TokenHash, s.AccountID, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns an unexpired session by token hash.
func (r *SessionRepository) Get(ctx context.Context, tokenHash string) (*models.SessionRecord, error) {
	var s models.SessionRecord
	err := r.db.QueryRow(ctx, `
		SELECT token_hash, account_id, expires_at, created_at
		FROM sessions WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash).Scan(&s.TokenHash, &s.AccountID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every expired session.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return database.PurgeExpiredSessions(ctx, r.db)
}
