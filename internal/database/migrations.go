package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the NOTIFY channel carrying "collection:owner" payloads
// for every write to the documents table.
const ChangeChannel = "document_changes"

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT,
			google_subject TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_account_id ON sessions(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,

		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			data JSONB NOT NULL,
			seq BIGSERIAL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(collection, owner_id, seq)`,

		`CREATE OR REPLACE FUNCTION notify_document_change() RETURNS trigger AS $$
		BEGIN
			IF TG_OP = 'DELETE' THEN
				PERFORM pg_notify('` + ChangeChannel + `', OLD.collection || ':' || OLD.owner_id);
				RETURN OLD;
			END IF;
			PERFORM pg_notify('` + ChangeChannel + `', NEW.collection || ':' || NEW.owner_id);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,

		`DROP TRIGGER IF EXISTS documents_notify ON documents`,
		`CREATE TRIGGER documents_notify
			AFTER INSERT OR UPDATE OR DELETE ON documents
			FOR EACH ROW EXECUTE FUNCTION notify_document_change()`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry and returns how many were removed.
func PurgeExpiredSessions(ctx context.Context, db PGXDB) (int64, error) {
	tag, err := db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
