package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// View is everything the dashboard renders from one record set.
type View struct {
	Rows       []models.Expense
	Total      decimal.Decimal
	Count      int
	Categories []CategoryTotal
	Months     []MonthBucket
	// MonthMax is the largest monthly total, for scaling the trend bars.
	MonthMax decimal.Decimal
}

// Derive recomputes the view from the full record set. Rows and category
// totals follow the filter; the monthly trend covers all records.
func Derive(records []models.Expense, f Filter, key SortKey, now time.Time) View {
	filtered := f.Apply(records)
	months := MonthlyTotals(records, now)

	monthMax := decimal.Zero
	for _, m := range months {
		monthMax = decimal.Max(monthMax, m.Total)
	}

	return View{
		Rows:       Sort(filtered, key),
		Total:      Sum(filtered),
		Count:      len(filtered),
		Categories: CategoryTotals(filtered),
		Months:     months,
		MonthMax:   monthMax,
	}
}
