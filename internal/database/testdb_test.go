package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestPool_Shared(t *testing.T) {
	require.Same(t, TestPool(t), TestPool(t))
}

func TestTestTx_RolledBackWritesStayInvisible(t *testing.T) {
	ctx := context.Background()
	tx := TestTx(t)
	_, owner := TestOwner(t)

	_, err := tx.Exec(ctx, `INSERT INTO documents (collection, id, owner_id, data) VALUES ('expenses', $1, $1, '{}')`, owner)
	require.NoError(t, err)

	var inTx, outside int
	require.NoError(t, tx.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id = $1`, owner).Scan(&inTx))
	require.NoError(t, TestPool(t).QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id = $1`, owner).Scan(&outside))
	require.Equal(t, 1, inTx)
	require.Zero(t, outside)
}

func TestIsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	tx := TestTx(t)

	insert := `INSERT INTO accounts (id, email) VALUES ($1, $2)`
	_, err := tx.Exec(ctx, insert, "acc-1", "dup@example.com")
	require.NoError(t, err)
	_, err = tx.Exec(ctx, insert, "acc-2", "dup@example.com")
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	require.False(t, IsUniqueViolation(nil))
	require.False(t, IsUniqueViolation(context.Canceled))
}
