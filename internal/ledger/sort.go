package ledger

import (
	"slices"

	"gitlab.com/yelinaung/trackify/internal/models"
)

// SortKey orders the visible rows.
type SortKey string

// Sort keys. SortNone keeps store order.
const (
	SortNone       SortKey = ""
	SortAmountAsc  SortKey = "amountAsc"
	SortAmountDesc SortKey = "amountDesc"
	SortDateAsc    SortKey = "dateAsc"
	SortDateDesc   SortKey = "dateDesc"
)

// SortKeys lists the selectable keys in display order.
var SortKeys = []SortKey{SortAmountAsc, SortAmountDesc, SortDateAsc, SortDateDesc}

// ParseSortKey maps unknown input to SortNone.
func ParseSortKey(s string) SortKey {
	k := SortKey(s)
	if slices.Contains(SortKeys, k) {
		return k
	}
	return SortNone
}

// Sort returns a stably sorted copy. Ties keep input order.
func Sort(records []models.Expense, key SortKey) []models.Expense {
	out := slices.Clone(records)

	var cmp func(a, b models.Expense) int
	switch key {
	case SortAmountAsc:
		cmp = func(a, b models.Expense) int { return a.Amount.Cmp(b.Amount) }
	case SortAmountDesc:
		cmp = func(a, b models.Expense) int { return b.Amount.Cmp(a.Amount) }
	case SortDateAsc:
		cmp = func(a, b models.Expense) int { return a.Date.Compare(b.Date) }
	case SortDateDesc:
		cmp = func(a, b models.Expense) int { return b.Date.Compare(a.Date) }
	default:
		return out
	}

	slices.SortStableFunc(out, cmp)
	return out
}
