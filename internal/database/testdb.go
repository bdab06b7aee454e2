package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	sharedPool     *pgxpool.Pool
	sharedPoolOnce sync.Once
	sharedPoolErr  error
)

// TestPool returns the migrated pool shared by integration tests, or skips
// the test when TEST_DATABASE_URL is unset.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	sharedPoolOnce.Do(func() {
		ctx := context.Background()
		if sharedPool, sharedPoolErr = Connect(ctx, dbURL); sharedPoolErr == nil {
			sharedPoolErr = RunMigrations(ctx, sharedPool)
		}
	})
	if sharedPoolErr != nil {
		t.Fatalf("failed to set up test database: %v", sharedPoolErr)
	}
	return sharedPool
}

// TestTx returns a transaction rolled back after the test. Change
// notifications fire on commit only, so subscription tests use TestOwner.
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// TestOwner returns a fresh owner id for tests that commit documents, and
// deletes that owner's documents afterwards.
func TestOwner(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	pool := TestPool(t)
	owner := uuid.NewString()
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), `DELETE FROM documents WHERE owner_id = $1`, owner); err != nil {
			t.Errorf("failed to remove documents of %s: %v", owner, err)
		}
	})
	return pool, owner
}
