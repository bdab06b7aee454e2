package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// TrendMonths is the number of monthly buckets in the trend.
const TrendMonths = 6

// MonthBucket is the total spent in one calendar month.
type MonthBucket struct {
	Year  int
	Month time.Month
	Label string
	Total decimal.Decimal
}

// CategoryTotal is the total spent in one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// MonthlyTotals returns TrendMonths buckets, oldest first, ending with the
// month of now. Every record counts regardless of any filter.
func MonthlyTotals(records []models.Expense, now time.Time) []MonthBucket {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(TrendMonths - 1), 0)

	buckets := make([]MonthBucket, TrendMonths)
	for i := range buckets {
		m := first.AddDate(0, i, 0)
		buckets[i] = MonthBucket{
			Year:  m.Year(),
			Month: m.Month(),
			Label: m.Format("Jan"),
			Total: decimal.Zero,
		}
	}

	for i := range records {
		for j := range buckets {
			if records[i].Date.InMonth(buckets[j].Year, buckets[j].Month) {
				buckets[j].Total = buckets[j].Total.Add(records[i].Amount)
				break
			}
		}
	}
	return buckets
}

// CategoryTotals sums amounts per category in order of first occurrence.
func CategoryTotals(records []models.Expense) []CategoryTotal {
	index := make(map[string]int)
	var totals []CategoryTotal
	for i := range records {
		c := records[i].Category
		if j, ok := index[c]; ok {
			totals[j].Total = totals[j].Total.Add(records[i].Amount)
			continue
		}
		index[c] = len(totals)
		totals = append(totals, CategoryTotal{Category: c, Total: records[i].Amount})
	}
	return totals
}

// Sum returns the total amount of records.
func Sum(records []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for i := range records {
		total = total.Add(records[i].Amount)
	}
	return total
}
