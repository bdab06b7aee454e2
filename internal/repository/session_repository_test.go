package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/trackify/internal/database"
	"gitlab.com/yelinaung/trackify/internal/models"
)

func TestSessionRepository(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()

	accounts := NewAccountRepository(tx)
	sessions := NewSessionRepository(tx)

	account := &models.Account{ID: uuid.NewString(), Email: "carol@example.com"}
	require.NoError(t, accounts.Create(ctx, account))

	t.Run("create and get", func(t *testing.T) {
		s := &models.SessionRecord{
			TokenHash: "live-hash",
			AccountID: account.ID,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, sessions.Create(ctx, s))

		fetched, err := sessions.Get(ctx, "live-hash")
		require.NoError(t, err)
		require.Equal(t, account.ID, fetched.AccountID)
	})

	t.Run("expired sessions are not returned and are purged", func(t *testing.T) {
		require.NoError(t, sessions.Create(ctx, &models.SessionRecord{
			TokenHash: "old-hash",
			AccountID: account.ID,
			ExpiresAt: time.Now().Add(-time.Hour),
		}))

		_, err := sessions.Get(ctx, "old-hash")
		require.ErrorIs(t, err, ErrSessionNotFound)

		n, err := sessions.DeleteExpired(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, int64(1))

		_, err = sessions.Get(ctx, "live-hash")
		require.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, sessions.Delete(ctx, "live-hash"))
		_, err := sessions.Get(ctx, "live-hash")
		require.ErrorIs(t, err, ErrSessionNotFound)

		require.NoError(t, sessions.Delete(ctx, "unknown"))
	})
}
