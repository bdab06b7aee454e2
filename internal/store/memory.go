package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memRecord struct {
	owner   string
	data    Document
	created time.Time
	updated time.Time
	seq     uint64
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memRecord
	seq         uint64
	now         func() time.Time
	hub         *hub
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]*memRecord),
		now:         time.Now,
		hub:         newHub(),
	}
}

// SetClock overrides the clock used for server timestamps.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Create adds a document with a generated id.
func (m *Memory) Create(ctx context.Context, collection, owner string, data Document) (string, error) {
	id := uuid.NewString()
	if err := m.CreateWithID(ctx, collection, id, owner, data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID adds a document under a caller-chosen id.
func (m *Memory) CreateWithID(ctx context.Context, collection, id, owner string, data Document) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}
	if id == "" {
		return errInvalid("Document id is required.")
	}
	if err := ctx.Err(); err != nil {
		return errUnavailable(err)
	}

	m.mu.Lock()
	now := m.now()
	stored, err := normalize(data, now)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]*memRecord)
		m.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		m.mu.Unlock()
		return errAlreadyExists()
	}
	m.seq++
	coll[id] = &memRecord{owner: owner, data: stored, created: now, updated: now, seq: m.seq}
	m.mu.Unlock()

	m.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// Get returns one document owned by owner.
func (m *Memory) Get(ctx context.Context, collection, id, owner string) (Snapshot, error) {
	if err := checkArgs(collection, owner); err != nil {
		return Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, errUnavailable(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.collections[collection][id]
	if !ok {
		return Snapshot{}, errNotFound()
	}
	if rec.owner != owner {
		return Snapshot{}, errPermissionDenied()
	}
	return rec.snapshot(id), nil
}

// Update replaces the data of a document owned by owner.
func (m *Memory) Update(ctx context.Context, collection, id, owner string, data Document) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errUnavailable(err)
	}

	m.mu.Lock()
	rec, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return errNotFound()
	}
	if rec.owner != owner {
		m.mu.Unlock()
		return errPermissionDenied()
	}
	now := m.now()
	stored, err := normalize(data, now)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	rec.data = stored
	rec.updated = now
	m.mu.Unlock()

	m.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// Delete removes a document owned by owner.
func (m *Memory) Delete(ctx context.Context, collection, id, owner string) error {
	if err := checkArgs(collection, owner); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errUnavailable(err)
	}

	m.mu.Lock()
	rec, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return errNotFound()
	}
	if rec.owner != owner {
		m.mu.Unlock()
		return errPermissionDenied()
	}
	delete(m.collections[collection], id)
	m.mu.Unlock()

	m.hub.notify(topic{collection: collection, owner: owner})
	return nil
}

// Subscribe delivers the owner's documents now and after every change.
func (m *Memory) Subscribe(ctx context.Context, q Query, onChange ChangeFunc) (CancelFunc, error) {
	if err := checkArgs(q.Collection, q.Owner); err != nil {
		return nil, err
	}
	return m.hub.subscribe(ctx, q, func(context.Context) ([]Snapshot, error) {
		return m.list(q), nil
	}, onChange)
}

// ActiveSubscriptions returns the number of live subscriptions.
func (m *Memory) ActiveSubscriptions() int {
	return m.hub.active()
}

func (m *Memory) list(q Query) []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type entry struct {
		id  string
		rec *memRecord
	}
	var entries []entry
	for id, rec := range m.collections[q.Collection] {
		if rec.owner == q.Owner {
			entries = append(entries, entry{id: id, rec: rec})
		}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.rec.seq, b.rec.seq)
	})

	docs := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, e.rec.snapshot(e.id))
	}
	return docs
}

func (r *memRecord) snapshot(id string) Snapshot {
	return Snapshot{
		ID:        id,
		Owner:     r.owner,
		Data:      cloneDocument(r.data),
		CreatedAt: r.created,
		UpdatedAt: r.updated,
	}
}
