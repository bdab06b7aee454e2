package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/trackify/internal/ledger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/report"
	"gitlab.com/yelinaung/trackify/internal/store"
)

var testNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// spyStore counts mutations and can fail or block them.
type spyStore struct {
	*store.Memory
	creates atomic.Int32
	updates atomic.Int32
	deletes atomic.Int32

	failWith error
	entered  chan struct{}
	release  chan struct{}
}

func newSpyStore() *spyStore {
	return &spyStore{Memory: store.NewMemory()}
}

func (s *spyStore) Create(ctx context.Context, collection, owner string, data store.Document) (string, error) {
	s.creates.Add(1)
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	if s.failWith != nil {
		return "", s.failWith
	}
	return s.Memory.Create(ctx, collection, owner, data)
}

func (s *spyStore) Update(ctx context.Context, collection, id, owner string, data store.Document) error {
	s.updates.Add(1)
	if s.failWith != nil {
		return s.failWith
	}
	return s.Memory.Update(ctx, collection, id, owner, data)
}

func (s *spyStore) Delete(ctx context.Context, collection, id, owner string) error {
	s.deletes.Add(1)
	if s.failWith != nil {
		return s.failWith
	}
	return s.Memory.Delete(ctx, collection, id, owner)
}

func (s *spyStore) mutations() int32 {
	return s.creates.Load() + s.updates.Load() + s.deletes.Load()
}

var alice = models.User{ID: "alice", Email: "alice@example.com", Name: "Alice"}

func testOptions() Options {
	return Options{Now: func() time.Time { return testNow }}
}

func mounted(t *testing.T, s store.Store, opts Options) *Dashboard {
	t.Helper()
	d := New(s, alice, opts)
	require.NoError(t, d.Mount(context.Background()))
	t.Cleanup(d.Close)
	return d
}

func waitRecords(t *testing.T, d *Dashboard, n int) []models.Expense {
	t.Helper()
	require.Eventually(t, func() bool { return len(d.Records()) == n }, 2*time.Second, 5*time.Millisecond)
	return d.Records()
}

func validForm() ledger.Form {
	return ledger.Form{Amount: "12.50", Date: "2024-03-10", Category: "Food", Remarks: "lunch"}
}

func TestDashboard_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	d := New(s, alice, testOptions())

	require.NoError(t, d.Mount(ctx))
	require.NoError(t, d.Mount(ctx))
	require.Equal(t, 1, s.ActiveSubscriptions())
	require.True(t, d.Mounted())

	d.Unmount()
	require.Zero(t, s.ActiveSubscriptions())
	require.False(t, d.Mounted())
	d.Unmount()

	require.NoError(t, d.Mount(ctx))
	require.Equal(t, 1, s.ActiveSubscriptions())

	d.Close()
	require.Zero(t, s.ActiveSubscriptions())
	require.ErrorIs(t, d.Mount(ctx), ErrClosed)
}

func TestDashboard_MountWithoutUser(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	d := New(s, models.User{}, testOptions())
	require.ErrorIs(t, d.Mount(context.Background()), ErrAuthRequired)
	require.Zero(t, s.ActiveSubscriptions())
}

func TestDashboard_InitialFormDate(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("East", 14*3600)
	d := New(store.NewMemory(), alice, Options{Location: loc, Now: func() time.Time { return testNow }})
	require.Equal(t, "2024-03-16", d.State().Form.Date)
}

func TestDashboard_Submit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unauthenticated submit never reaches the store", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		d := New(s, models.User{}, testOptions())

		err := d.Submit(ctx, validForm())
		require.ErrorIs(t, err, ErrAuthRequired)
		require.ErrorIs(t, d.Delete(ctx, "x"), ErrAuthRequired)
		require.Zero(t, s.mutations())
	})

	t.Run("invalid form never reaches the store", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		d := mounted(t, s, testOptions())

		form := validForm()
		form.Amount = "abc"
		err := d.Submit(ctx, form)
		require.ErrorIs(t, err, ledger.ErrValidation)
		require.Zero(t, s.mutations())

		state := d.State()
		require.True(t, state.Message.Error)
		require.Contains(t, state.FieldErrors, "amount")
		require.Equal(t, "abc", state.Form.Amount)
		require.True(t, state.Panels.Form)
	})

	t.Run("create clears the form and waits for the push", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		d := mounted(t, s, testOptions())

		require.NoError(t, d.Submit(ctx, validForm()))
		require.Equal(t, int32(1), s.creates.Load())

		state := d.State()
		require.Equal(t, Message{Text: MsgAdded}, state.Message)
		require.Equal(t, ledger.Form{Date: "2024-03-15"}, state.Form)
		require.False(t, state.Panels.Form)

		records := waitRecords(t, d, 1)
		require.Equal(t, "12.5", records[0].Amount.String())
		require.Equal(t, "alice", records[0].OwnerID)
		require.Equal(t, "alice@example.com", records[0].OwnerEmail)
		require.Equal(t, "lunch", records[0].Remarks)
	})

	t.Run("edit then submit updates in place", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		d := mounted(t, s, testOptions())
		require.NoError(t, d.Submit(ctx, validForm()))
		id := waitRecords(t, d, 1)[0].ID

		require.NoError(t, d.Edit(id))
		state := d.State()
		require.Equal(t, id, state.EditID)
		require.Equal(t, "12.5", state.Form.Amount)
		require.True(t, state.Panels.Form)

		form := state.Form
		form.Amount = "20"
		require.NoError(t, d.Submit(ctx, form))
		require.Equal(t, int32(1), s.updates.Load())
		require.Equal(t, MsgUpdated, d.State().Message.Text)
		require.Empty(t, d.State().EditID)

		require.Eventually(t, func() bool {
			r := d.Records()
			return len(r) == 1 && r[0].ID == id && r[0].Amount.String() == "20"
		}, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("store failure keeps state and shows the store message", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		d := mounted(t, s, testOptions())
		s.failWith = &store.Error{Kind: store.ErrPermissionDenied, Message: "Missing or insufficient permissions."}

		err := d.Submit(ctx, validForm())
		require.ErrorIs(t, err, store.ErrPermissionDenied)

		state := d.State()
		require.Equal(t, Message{Text: "Missing or insufficient permissions.", Error: true}, state.Message)
		require.Equal(t, validForm(), state.Form)
		require.Empty(t, d.Records())
	})

	t.Run("second submit while one is in flight is refused", func(t *testing.T) {
		t.Parallel()
		s := newSpyStore()
		s.entered = make(chan struct{})
		s.release = make(chan struct{})
		d := mounted(t, s, testOptions())

		done := make(chan error, 1)
		go func() { done <- d.Submit(ctx, validForm()) }()
		<-s.entered

		require.ErrorIs(t, d.Submit(ctx, validForm()), ErrSubmitInFlight)
		close(s.release)
		require.NoError(t, <-done)
		require.Equal(t, int32(1), s.creates.Load())

		s.entered = nil
		require.NoError(t, d.Submit(ctx, validForm()))
	})
}

func TestDashboard_EditAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSpyStore()
	d := mounted(t, s, testOptions())

	require.ErrorIs(t, d.Edit("missing"), ErrUnknownRecord)

	require.NoError(t, d.Submit(ctx, validForm()))
	id := waitRecords(t, d, 1)[0].ID

	require.NoError(t, d.Edit(id))
	d.CancelEdit()
	require.Empty(t, d.State().EditID)
	require.Equal(t, "2024-03-15", d.State().Form.Date)

	require.NoError(t, d.Edit(id))
	require.NoError(t, d.Delete(ctx, id))
	require.Empty(t, d.State().EditID)
	require.Equal(t, MsgDeleted, d.State().Message.Text)
	waitRecords(t, d, 0)

	err := d.Delete(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.True(t, d.State().Message.Error)
}

func TestDashboard_ViewAndExport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	d := mounted(t, s, testOptions())

	for _, f := range []ledger.Form{
		{Amount: "12.5", Date: "2024-03-10", Category: "Coffee"},
		{Amount: "1200", Date: "2024-03-10", Category: "Rent"},
	} {
		require.NoError(t, d.Submit(ctx, f))
	}
	waitRecords(t, d, 2)

	d.SetView(FilterInput{Min: "50", Max: "2000"}, ledger.SortNone, Panels{Filters: true})
	view := d.View(testNow)
	require.Len(t, view.Rows, 1)
	require.Equal(t, "Rent", view.Rows[0].Category)
	require.Equal(t, "1212.5", view.Months[5].Total.String())

	data, name, err := d.Export(report.ScopeFiltered, report.FormatCSV)
	require.NoError(t, err)
	require.Equal(t, "expenses_filtered_2024-03-15.csv", name)
	require.Contains(t, string(data), "1200.00")
	require.NotContains(t, string(data), "12.50")

	data, name, err = d.Export(report.ScopeAll, report.FormatCSV)
	require.NoError(t, err)
	require.Equal(t, "expenses_all_2024-03-15.csv", name)
	require.Contains(t, string(data), "12.50")

	png, err := d.Chart()
	require.NoError(t, err)
	require.NotEmpty(t, png)

	d.SetView(FilterInput{Category: "Nothing"}, ledger.SortNone, Panels{})
	_, _, err = d.Export(report.ScopeFiltered, report.FormatXLSX)
	require.ErrorIs(t, err, ErrNoData)
	_, err = d.Chart()
	require.ErrorIs(t, err, ErrNoData)
}

func TestDashboard_SkipsMalformedDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	_, err := s.Create(ctx, models.CollectionExpenses, "alice", store.Document{"amount": "lots", "userId": "alice"})
	require.NoError(t, err)
	_, err = s.Create(ctx, models.CollectionExpenses, "alice", ledger.ToDocument(models.Expense{
		Amount: validAmount(), Date: models.Date{Year: 2024, Month: 1, Day: 1}, Category: "Food", OwnerID: "alice",
	}))
	require.NoError(t, err)

	d := mounted(t, s, testOptions())
	require.Len(t, d.Records(), 1)
}

func TestDashboard_Watch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := mounted(t, store.NewMemory(), testOptions())

	ch, stop := d.Watch()
	defer stop()

	require.NoError(t, d.Submit(ctx, validForm()))
	select {
	case _, ok := <-ch:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no change notification")
	}

	d.Close()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	late, lateStop := d.Watch()
	defer lateStop()
	_, ok := <-late
	require.False(t, ok)
}

func TestDashboard_Version(t *testing.T) {
	t.Parallel()
	d := mounted(t, store.NewMemory(), testOptions())
	require.Equal(t, uint64(1), d.Version())

	require.NoError(t, d.Submit(context.Background(), validForm()))
	require.Eventually(t, func() bool { return d.Version() == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Len(t, d.Records(), 1)
}

func validAmount() decimal.Decimal {
	return decimal.RequireFromString("3.20")
}
