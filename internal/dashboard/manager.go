package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/store"
)

type entry struct {
	board     *Dashboard
	lastUsed  time.Time
	expiresAt time.Time
}

// Manager keeps one dashboard per session token.
type Manager struct {
	store       store.Store
	opts        Options
	idleTimeout time.Duration

	mu     sync.Mutex
	boards map[string]*entry
}

// NewManager creates a manager. Dashboards idle for longer than idleTimeout
// are unmounted by Sweep; zero disables idle unmounting.
func NewManager(s store.Store, idleTimeout time.Duration, opts Options) *Manager {
	return &Manager{
		store:       s,
		opts:        opts.withDefaults(),
		idleTimeout: idleTimeout,
		boards:      make(map[string]*entry),
	}
}

// Get returns the mounted dashboard for a session, creating it on first use.
func (m *Manager) Get(ctx context.Context, token string, user models.User, expiresAt time.Time) (*Dashboard, error) {
	for {
		d, displaced := m.lookup(token, user, expiresAt)
		if displaced != nil {
			displaced.Close()
		}
		err := d.Mount(ctx)
		if errors.Is(err, ErrClosed) {
			// Released concurrently; start over with a fresh dashboard.
			continue
		}
		if err != nil {
			m.drop(token, d)
			return nil, err
		}
		return d, nil
	}
}

// lookup returns the session's dashboard. When a new one replaces an entry
// held by another user, the old dashboard is returned as displaced so the
// caller can close it outside the lock.
func (m *Manager) lookup(token string, user models.User, expiresAt time.Time) (d, displaced *Dashboard) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.opts.Now()
	e, ok := m.boards[token]
	if ok && e.board.User().ID == user.ID && !e.board.isClosed() {
		e.lastUsed = now
		e.expiresAt = expiresAt
		return e.board, nil
	}
	if ok {
		displaced = e.board
	}

	d = New(m.store, user, m.opts)
	m.boards[token] = &entry{board: d, lastUsed: now, expiresAt: expiresAt}
	return d, displaced
}

func (m *Manager) drop(token string, d *Dashboard) {
	m.mu.Lock()
	if e, ok := m.boards[token]; ok && e.board == d {
		delete(m.boards, token)
	}
	m.mu.Unlock()
	d.Close()
}

// Peek returns the dashboard for token without mounting it.
func (m *Manager) Peek(token string) (*Dashboard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.boards[token]
	if !ok {
		return nil, false
	}
	return e.board, true
}

// Release closes the session's dashboard, for example on sign-out.
func (m *Manager) Release(token string) {
	m.mu.Lock()
	e, ok := m.boards[token]
	delete(m.boards, token)
	m.mu.Unlock()

	if ok {
		e.board.Close()
	}
}

// Sweep closes dashboards whose session expired or that sat idle. It returns
// how many were closed.
func (m *Manager) Sweep(now time.Time) int {
	var stale []*Dashboard

	m.mu.Lock()
	for token, e := range m.boards {
		idle := m.idleTimeout > 0 && now.Sub(e.lastUsed) >= m.idleTimeout
		expired := !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
		if idle || expired {
			stale = append(stale, e.board)
			delete(m.boards, token)
		}
	}
	m.mu.Unlock()

	for _, d := range stale {
		d.Close()
	}
	if len(stale) > 0 {
		logger.Log.Debug().Int("count", len(stale)).Msg("Closed idle dashboards")
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done, then closes everything.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-ticker.C:
			m.Sweep(m.opts.Now())
		}
	}
}

// Close closes every dashboard.
func (m *Manager) Close() {
	m.mu.Lock()
	boards := m.boards
	m.boards = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range boards {
		e.board.Close()
	}
}

// Active returns the number of mounted dashboards, which equals the number
// of store subscriptions the manager owns.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.boards {
		if e.board.Mounted() {
			n++
		}
	}
	return n
}
