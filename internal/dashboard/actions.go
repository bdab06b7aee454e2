package dashboard

import (
	"context"
	"errors"
	"maps"
	"time"

	"gitlab.com/yelinaung/trackify/internal/ledger"
	"gitlab.com/yelinaung/trackify/internal/logger"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/report"
	"gitlab.com/yelinaung/trackify/internal/store"
)

// Flash messages.
const (
	MsgAdded   = "Expense added!"
	MsgUpdated = "Expense updated!"
	MsgDeleted = "Expense deleted."
)

// ChartTitle is the title of the category pie chart.
const ChartTitle = "Spending by category"

// State returns a copy of the view state.
func (d *Dashboard) State() ViewState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	s.FieldErrors = maps.Clone(d.state.FieldErrors)
	return s
}

// Records returns the current record set in store order.
func (d *Dashboard) Records() []models.Expense {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Expense, len(d.records))
	copy(out, d.records)
	return out
}

// SetView replaces the filter, sort key and panel toggles.
func (d *Dashboard) SetView(filter FilterInput, sort ledger.SortKey, panels Panels) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Filter = filter
	d.state.Sort = sort
	// The form panel stays open while editing.
	panels.Form = panels.Form || d.state.EditID != ""
	d.state.Panels = panels
}

// ClearMessage drops the flash message once it has been shown.
func (d *Dashboard) ClearMessage() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Message = Message{}
}

// View derives the rendered view from the current records and state.
func (d *Dashboard) View(now time.Time) ledger.View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ledger.Derive(d.records, d.state.Filter.Filter(), d.state.Sort, now)
}

// Submit validates the form and creates a record, or updates the one being
// edited. The record set itself only changes when the store pushes.
func (d *Dashboard) Submit(ctx context.Context, form ledger.Form) error {
	if d.user.ID == "" {
		return ErrAuthRequired
	}
	if !d.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer d.submitting.Store(false)

	d.mu.Lock()
	d.state.Form = form
	d.state.Panels.Form = true
	editID := d.state.EditID
	d.mu.Unlock()

	op := OpCreate
	if editID != "" {
		op = OpUpdate
	}

	entry, err := ledger.ParseForm(form, d.opts.StrictCategories)
	if err != nil {
		var fields map[string]string
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			fields = ve.Fields
		}
		d.fail(err, fields)
		d.opts.Metrics.mutation(ctx, op, OutcomeInvalid)
		return err
	}

	doc := ledger.ToDocument(models.Expense{
		Amount:     entry.Amount,
		Date:       entry.Date,
		Category:   entry.Category,
		Remarks:    entry.Remarks,
		OwnerID:    d.user.ID,
		OwnerEmail: d.user.Email,
	})

	if editID != "" {
		err = d.store.Update(ctx, models.CollectionExpenses, editID, d.user.ID, doc)
	} else {
		_, err = d.store.Create(ctx, models.CollectionExpenses, d.user.ID, doc)
	}
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("op", op).
			Str("user_hash", logger.HashUserID(d.user.ID)).
			Msg("Expense mutation rejected")
		d.fail(err, nil)
		d.opts.Metrics.mutation(ctx, op, OutcomeRejected)
		return err
	}

	msg := MsgAdded
	if editID != "" {
		msg = MsgUpdated
	}
	d.mu.Lock()
	d.state.Form = d.blankForm()
	d.state.EditID = ""
	d.state.Panels.Form = false
	d.state.FieldErrors = nil
	d.state.Message = Message{Text: msg}
	d.mu.Unlock()

	d.opts.Metrics.mutation(ctx, op, OutcomeOK)
	logger.Log.Info().
		Str("op", op).
		Str("user_hash", logger.HashUserID(d.user.ID)).
		Msg("Expense saved")
	return nil
}

// Edit prefills the form with record id.
func (d *Dashboard) Edit(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.records {
		if d.records[i].ID == id {
			d.state.Form = ledger.FormOf(d.records[i])
			d.state.EditID = id
			d.state.Panels.Form = true
			d.state.FieldErrors = nil
			d.state.Message = Message{}
			return nil
		}
	}
	return ErrUnknownRecord
}

// CancelEdit resets the form.
func (d *Dashboard) CancelEdit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Form = d.blankForm()
	d.state.EditID = ""
	d.state.Panels.Form = false
	d.state.FieldErrors = nil
}

// Delete removes record id without confirmation.
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if d.user.ID == "" {
		return ErrAuthRequired
	}

	if err := d.store.Delete(ctx, models.CollectionExpenses, id, d.user.ID); err != nil {
		logger.Log.Warn().Err(err).
			Str("op", OpDelete).
			Str("user_hash", logger.HashUserID(d.user.ID)).
			Msg("Expense mutation rejected")
		d.fail(err, nil)
		d.opts.Metrics.mutation(ctx, OpDelete, OutcomeRejected)
		return err
	}

	d.mu.Lock()
	if d.state.EditID == id {
		d.state.Form = d.blankForm()
		d.state.EditID = ""
		d.state.Panels.Form = false
	}
	d.state.Message = Message{Text: MsgDeleted}
	d.mu.Unlock()

	d.opts.Metrics.mutation(ctx, OpDelete, OutcomeOK)
	return nil
}

// Export renders the records in scope. An empty scope gives ErrNoData.
func (d *Dashboard) Export(scope report.Scope, format report.Format) ([]byte, string, error) {
	now := d.opts.Now()

	d.mu.Lock()
	var records []models.Expense
	if scope == report.ScopeAll {
		records = ledger.Sort(d.records, d.state.Sort)
	} else {
		records = ledger.Derive(d.records, d.state.Filter.Filter(), d.state.Sort, now).Rows
	}
	d.mu.Unlock()

	if len(records) == 0 {
		return nil, "", ErrNoData
	}

	data, err := report.Render(format, records)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("format", string(format)).
			Str("user_hash", logger.HashUserID(d.user.ID)).
			Msg("Failed to generate export")
		return nil, "", ErrExportFailed
	}
	return data, report.Filename(scope, format, now.In(d.opts.Location)), nil
}

// Chart renders the category pie for the filtered records.
func (d *Dashboard) Chart() ([]byte, error) {
	view := d.View(d.opts.Now())
	if len(view.Categories) == 0 {
		return nil, ErrNoData
	}
	png, err := report.CategoryPieChart(view.Categories, ChartTitle)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to render category chart")
		return nil, err
	}
	return png, nil
}

func (d *Dashboard) fail(err error, fields map[string]string) {
	text := err.Error()
	var se *store.Error
	if errors.As(err, &se) {
		text = se.Message
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Message = Message{Text: text, Error: true}
	d.state.FieldErrors = fields
}

func (d *Dashboard) blankForm() ledger.Form {
	return ledger.Form{Date: d.opts.Now().In(d.opts.Location).Format(models.DateLayout)}
}
