package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunMigrations(t *testing.T) {
	pool := TestPool(t)
	ctx := context.Background()

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, RunMigrations(ctx, pool))
		require.NoError(t, RunMigrations(ctx, pool))
	})

	for _, table := range []string{"accounts", "sessions", "documents"} {
		t.Run("creates "+table, func(t *testing.T) {
			var exists bool
			err := pool.QueryRow(ctx, `
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_name = $1
				)
			`, table).Scan(&exists)
			require.NoError(t, err)
			require.True(t, exists)
		})
	}

	t.Run("installs change trigger", func(t *testing.T) {
		var exists bool
		err := pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT FROM pg_trigger WHERE tgname = 'documents_notify')
		`).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists)
	})
}

func TestPurgeExpiredSessions(t *testing.T) {
	tx := TestTx(t)
	ctx := context.Background()

	_, err := tx.Exec(ctx, `INSERT INTO accounts (id, email) VALUES ('purge-user', 'purge@example.com')`)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `INSERT INTO sessions (token_hash, account_id, expires_at) VALUES
		('expired', 'purge-user', $1), ('live', 'purge-user', $2)`,
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)

	n, err := PurgeExpiredSessions(ctx, tx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	var remaining int
	require.NoError(t, tx.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE account_id = 'purge-user'`).Scan(&remaining))
	require.Equal(t, 1, remaining)
}
