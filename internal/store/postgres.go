package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/yelinaung/trackify/internal/database"
	"gitlab.com/yelinaung/trackify/internal/logger"
)

// Postgres is a Store over the documents table. Writes fire a trigger that
// NOTIFYs database.ChangeChannel; Listen turns those into subscription pushes,
// so every process sharing the database sees every change.
type Postgres struct {
	db   database.PGXDB
	pool *pgxpool.Pool
	hub  *hub
	now  func() time.Time
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a store on a pool. Call Listen to receive changes.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool, hub: newHub(), now: time.Now}
}

// NewPostgresWithDB creates a store on any query surface, such as a test
// transaction. Such a store cannot Listen; subscriptions still receive the
// changes made through this store.
func NewPostgresWithDB(db database.PGXDB) *Postgres {
	return &Postgres{db: db, hub: newHub(), now: time.Now}
}

// Create adds a document with a generated id.
func (p *Postgres) Create(ctx context.Context, collection, owner string, data Document) (string, error) {
	id := uuid.NewString()
	if err := p.CreateWithID(ctx, collection, id, owner, data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID adds a document under a caller-chosen id.
func (p *Postgres) CreateWithID(ctx context.Context, collection, id, owner string, data Document) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}
	if id == "" {
		return errInvalid("Document id is required.")
	}
	raw, err := p.encode(data)
	if err != nil {
		return err
	}

	tag, err := p.db.Exec(ctx, `
		INSERT INTO documents (collection, id, owner_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, owner, raw)
	if err != nil {
		return errUnavailable(fmt.Errorf("failed to insert document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return errAlreadyExists()
	}

	p.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// Get returns one document owned by owner.
func (p *Postgres) Get(ctx context.Context, collection, id, owner string) (Snapshot, error) {
	if err := checkArgs(collection, owner); err != nil {
		return Snapshot{}, err
	}

	var (
		snap Snapshot
		raw  []byte
	)
	err := p.db.QueryRow(ctx, `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&snap.ID, &snap.Owner, &raw, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, errNotFound()
	}
	if err != nil {
		return Snapshot{}, errUnavailable(fmt.Errorf("failed to get document: %w", err))
	}
	if snap.Owner != owner {
		return Snapshot{}, errPermissionDenied()
	}
	if snap.Data, err = decode(raw); err != nil {
		return Snapshot{}, errUnavailable(err)
	}
	return snap, nil
}

// Update replaces the data of a document owned by owner.
func (p *Postgres) Update(ctx context.Context, collection, id, owner string, data Document) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}
	raw, err := p.encode(data)
	if err != nil {
		return err
	}

	tag, err := p.db.Exec(ctx, `
		UPDATE documents SET data = $4, updated_at = NOW()
		WHERE collection = $1 AND id = $2 AND owner_id = $3
	`, collection, id, owner, raw)
	if err != nil {
		return errUnavailable(fmt.Errorf("failed to update document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return p.missOrDenied(ctx, collection, id)
	}

	p.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// Delete removes a document owned by owner.
func (p *Postgres) Delete(ctx context.Context, collection, id, owner string) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}

	tag, err := p.db.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2 AND owner_id = $3
	`, collection, id, owner)
	if err != nil {
		return errUnavailable(fmt.Errorf("failed to delete document: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return p.missOrDenied(ctx, collection, id)
	}

	p.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// missOrDenied classifies a write that matched no row.
func (p *Postgres) missOrDenied(ctx context.Context, collection, id string) error {
	var exists bool
	err := p.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)
	`, collection, id).Scan(&exists)
	if err != nil {
		return errUnavailable(fmt.Errorf("failed to check document: %w", err))
	}
	if exists {
		return errPermissionDenied()
	}
	return errNotFound()
}

// Subscribe delivers the owner's documents now and after every change.
func (p *Postgres) Subscribe(ctx context.Context, q Query, onChange ChangeFunc) (CancelFunc, error) {
	if err := checkArgs(q.Collection, q.Owner); err != nil {
		return nil, err
	}
	return p.hub.subscribe(ctx, q, func(ctx context.Context) ([]Snapshot, error) {
		return p.list(ctx, q)
	}, onChange)
}

// ActiveSubscriptions returns the number of live subscriptions.
func (p *Postgres) ActiveSubscriptions() int {
	return p.hub.active()
}

func (p *Postgres) list(ctx context.Context, q Query) ([]Snapshot, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, owner_id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND owner_id = $2
		ORDER BY seq
	`, q.Collection, q.Owner)
	if err != nil {
		return nil, errUnavailable(fmt.Errorf("failed to query documents: %w", err))
	}
	defer rows.Close()

	docs := []Snapshot{}
	for rows.Next() {
		var (
			snap Snapshot
			raw  []byte
		)
		if err := rows.Scan(&snap.ID, &snap.Owner, &raw, &snap.CreatedAt, &snap.UpdatedAt); err != nil {
			return nil, errUnavailable(fmt.Errorf("failed to scan document: %w", err))
		}
		if snap.Data, err = decode(raw); err != nil {
			return nil, errUnavailable(err)
		}
		docs = append(docs, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, errUnavailable(fmt.Errorf("error iterating documents: %w", err))
	}
	return docs, nil
}

// Listen relays database notifications to local subscriptions until ctx is
// done. A lost connection is re-established after a pause, and every
// subscription is refreshed since changes may have been missed meanwhile.
func (p *Postgres) Listen(ctx context.Context) error {
	if p.pool == nil {
		return errors.New("store was created without a pool and cannot listen")
	}

	reconnected := false
	for {
		err := p.listenOnce(ctx, reconnected)
		if ctx.Err() != nil {
			return nil
		}
		logger.Log.Warn().Err(err).Msg("Document change listener lost connection, retrying")
		reconnected = true

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

func (p *Postgres) listenOnce(ctx context.Context, resync bool) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+database.ChangeChannel); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if resync {
		p.hub.notifyAll()
	}
	logger.Log.Debug().Str("channel", database.ChangeChannel).Msg("Listening for document changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for notification: %w", err)
		}
		collection, owner, ok := strings.Cut(n.Payload, ":")
		if !ok {
			continue
		}
		p.hub.notify(topic{collection: collection, owner: owner})
	}
}

func (p *Postgres) encode(data Document) ([]byte, error) {
	stored, err := normalize(data, p.now())
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, errInvalid("Document could not be encoded.")
	}
	return raw, nil
}

func decode(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	doc := make(Document, len(m))
	for k, v := range m {
		doc[k] = restore(v)
	}
	return doc, nil
}
