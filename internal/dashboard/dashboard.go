// Package dashboard holds the per-session state of the expense dashboard:
// the live record set, the view state and the mutations a user can trigger.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/yelinaung/trackify/internal/ledger"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/store"
)

var (
	// ErrAuthRequired is returned for mutations without a signed-in user.
	ErrAuthRequired = errors.New("you must be signed in to do that")
	// ErrSubmitInFlight is returned when a submit is already running.
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	// ErrNoData is returned when there is nothing to export or chart.
	ErrNoData = errors.New("no data")
	// ErrUnknownRecord is returned when an id is not in the record set.
	ErrUnknownRecord = errors.New("expense not found")
	// ErrClosed is returned by Mount after Close.
	ErrClosed = errors.New("dashboard closed")
	// ErrExportFailed is returned when an export cannot be generated.
	ErrExportFailed = errors.New("Failed to export data. Please try again.")
)

// Options configures a Dashboard.
type Options struct {
	// StrictCategories limits categories to models.DefaultCategories.
	StrictCategories bool
	// Location decides what "today" is for the form's default date.
	Location *time.Location
	Metrics  *Metrics
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Dashboard is one user's dashboard. Records change only when the store
// subscription pushes a snapshot.
type Dashboard struct {
	store store.Store
	user  models.User
	opts  Options

	// life serializes Mount, Unmount and Close.
	life    sync.Mutex
	cancel  store.CancelFunc
	closed  atomic.Bool
	mounted atomic.Bool

	mu          sync.Mutex
	state       ViewState
	records     []models.Expense
	version     uint64
	watchers    map[chan struct{}]struct{}
	watchClosed bool

	submitting atomic.Bool
}

// New creates an unmounted dashboard for user.
func New(s store.Store, user models.User, opts Options) *Dashboard {
	d := &Dashboard{
		store:    s,
		user:     user,
		opts:     opts.withDefaults(),
		watchers: make(map[chan struct{}]struct{}),
	}
	d.state.Form = d.blankForm()
	return d
}

// User returns the dashboard's user.
func (d *Dashboard) User() models.User {
	return d.user
}

// Mount subscribes to the user's expenses. Mounting a mounted dashboard is a no-op.
func (d *Dashboard) Mount(ctx context.Context) error {
	if d.user.ID == "" {
		return ErrAuthRequired
	}

	d.life.Lock()
	defer d.life.Unlock()
	if d.closed.Load() {
		return ErrClosed
	}
	if d.cancel != nil {
		return nil
	}

	cancel, err := d.store.Subscribe(ctx, store.Query{
		Collection: models.CollectionExpenses,
		Owner:      d.user.ID,
	}, d.onSnapshot)
	if err != nil {
		return fmt.Errorf("failed to subscribe to expenses: %w", err)
	}
	d.cancel = cancel
	d.mounted.Store(true)

	logger.Log.Debug().
		Str("user_hash", logger.HashUserID(d.user.ID)).
		Msg("Dashboard mounted")
	return nil
}

// Unmount cancels the subscription. The dashboard may be mounted again.
func (d *Dashboard) Unmount() {
	d.life.Lock()
	defer d.life.Unlock()
	d.unmountLocked()
}

// Close unmounts for good and ends every watcher.
func (d *Dashboard) Close() {
	d.life.Lock()
	defer d.life.Unlock()
	d.unmountLocked()
	d.closed.Store(true)

	d.mu.Lock()
	for ch := range d.watchers {
		close(ch)
	}
	d.watchers = make(map[chan struct{}]struct{})
	d.watchClosed = true
	d.mu.Unlock()
}

func (d *Dashboard) unmountLocked() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.cancel = nil
	d.mounted.Store(false)

	logger.Log.Debug().
		Str("user_hash", logger.HashUserID(d.user.ID)).
		Msg("Dashboard unmounted")
}

func (d *Dashboard) isClosed() bool {
	return d.closed.Load()
}

// Mounted reports whether the dashboard holds a live subscription.
func (d *Dashboard) Mounted() bool {
	return d.mounted.Load()
}

func (d *Dashboard) onSnapshot(docs []store.Snapshot) {
	records := make([]models.Expense, 0, len(docs))
	for _, doc := range docs {
		e, err := ledger.FromDocument(doc.ID, doc.Data)
		if err != nil {
			logger.Log.Warn().Err(err).
				Str("user_hash", logger.HashUserID(d.user.ID)).
				Msg("Skipping malformed expense document")
			continue
		}
		records = append(records, e)
	}

	d.mu.Lock()
	d.records = records
	d.version++
	for ch := range d.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	d.mu.Unlock()
}

// Version counts the snapshots received so far. A page rendered at one
// version is stale once Version moves past it.
func (d *Dashboard) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Watch returns a channel that receives after every pushed snapshot and is
// closed when the dashboard closes. Call stop when done.
func (d *Dashboard) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watchClosed {
		close(ch)
		return ch, func() {}
	}
	d.watchers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if _, ok := d.watchers[ch]; ok {
				delete(d.watchers, ch)
				close(ch)
			}
		})
	}
}
