package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/trackify/internal/database"
)

func TestPostgresCRUD(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	s := NewPostgresWithDB(tx)
	owner := uuid.NewString()
	other := uuid.NewString()

	id, err := s.Create(ctx, "expenses", owner, Document{
		"amount":    json.Number("12.50"),
		"category":  "Food",
		"createdAt": ServerTimestamp,
	})
	require.NoError(t, err)

	snap, err := s.Get(ctx, "expenses", id, owner)
	require.NoError(t, err)
	require.Equal(t, owner, snap.Owner)
	require.Equal(t, "Food", snap.Data["category"])
	require.Equal(t, json.Number("12.50"), snap.Data["amount"])
	require.IsType(t, Timestamp{}, snap.Data["createdAt"])

	_, err = s.Get(ctx, "expenses", id, other)
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.ErrorIs(t, s.Update(ctx, "expenses", id, other, Document{}), ErrPermissionDenied)
	require.ErrorIs(t, s.Delete(ctx, "expenses", id, other), ErrPermissionDenied)

	require.NoError(t, s.Update(ctx, "expenses", id, owner, Document{"category": "Bills"}))
	snap, err = s.Get(ctx, "expenses", id, owner)
	require.NoError(t, err)
	require.Equal(t, Document{"category": "Bills"}, snap.Data)

	require.ErrorIs(t, s.CreateWithID(ctx, "expenses", id, owner, Document{}), ErrAlreadyExists)

	require.NoError(t, s.Delete(ctx, "expenses", id, owner))
	_, err = s.Get(ctx, "expenses", id, owner)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Update(ctx, "expenses", id, owner, Document{}), ErrNotFound)
}

func TestPostgresSubscribeAcrossStores(t *testing.T) {
	pool, owner := database.TestOwner(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := NewPostgres(pool)
	reader := NewPostgres(pool)
	go func() { _ = reader.Listen(ctx) }()

	rec := newRecorder()
	stop, err := reader.Subscribe(ctx, Query{Collection: "expenses", Owner: owner}, rec.onChange)
	require.NoError(t, err)
	defer stop()
	require.Empty(t, rec.last())

	// Give the listener time to issue LISTEN before writing.
	time.Sleep(200 * time.Millisecond)

	_, err = writer.Create(ctx, "expenses", owner, Document{"n": 1})
	require.NoError(t, err)
	_, err = writer.Create(ctx, "expenses", owner, Document{"n": 2})
	require.NoError(t, err)

	docs := rec.waitFor(t, 2)
	require.Equal(t, json.Number("1"), docs[0].Data["n"])
	require.Equal(t, json.Number("2"), docs[1].Data["n"])
}

func TestPostgresListenRequiresPool(t *testing.T) {
	t.Parallel()
	s := NewPostgresWithDB(nil)
	require.Error(t, s.Listen(context.Background()))
}
