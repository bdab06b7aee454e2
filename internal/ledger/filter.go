// Package ledger is the pure record pipeline behind the dashboard: filtering,
// sorting, aggregation and conversion between store documents and expenses.
// Nothing here mutates its input.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// AllCategories is the category filter wildcard.
const AllCategories = "all"

// Filter selects records. Zero-valued fields are inactive.
type Filter struct {
	Category  string
	From      models.Date
	To        models.Date
	MinAmount decimal.NullDecimal
	MaxAmount decimal.NullDecimal
	Search    string
}

// Active reports whether any clause is set.
func (f Filter) Active() bool {
	return f.categoryActive() || !f.From.IsZero() || !f.To.IsZero() ||
		f.MinAmount.Valid || f.MaxAmount.Valid || strings.TrimSpace(f.Search) != ""
}

func (f Filter) categoryActive() bool {
	return f.Category != "" && f.Category != AllCategories
}

// Matches reports whether e passes every active clause.
func (f Filter) Matches(e *models.Expense) bool {
	if f.categoryActive() && e.Category != f.Category {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.MinAmount.Valid && e.Amount.LessThan(f.MinAmount.Decimal) {
		return false
	}
	if f.MaxAmount.Valid && e.Amount.GreaterThan(f.MaxAmount.Decimal) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(e.Category), q) &&
			!strings.Contains(strings.ToLower(e.Remarks), q) &&
			!strings.Contains(e.Amount.String(), q) {
			return false
		}
	}
	return true
}

// Apply returns the records that match f, in input order.
func (f Filter) Apply(records []models.Expense) []models.Expense {
	out := make([]models.Expense, 0, len(records))
	for i := range records {
		if f.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
