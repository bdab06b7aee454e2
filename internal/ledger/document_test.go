package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/store"
)

func TestFromDocument(t *testing.T) {
	t.Parallel()

	march10 := store.TimestampOf(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	base := func() store.Document {
		return store.Document{
			"amount":    json.Number("12.50"),
			"date":      march10,
			"type":      "Food",
			"remarks":   "lunch",
			"userId":    "u1",
			"userEmail": "u1@example.com",
			"createdAt": march10,
		}
	}

	t.Run("well formed", func(t *testing.T) {
		t.Parallel()
		e, err := FromDocument("x", base())
		require.NoError(t, err)
		require.Equal(t, "x", e.ID)
		require.Equal(t, "12.5", e.Amount.String())
		require.Equal(t, models.Date{Year: 2024, Month: 3, Day: 10}, e.Date)
		require.Equal(t, "Food", e.Category)
		require.Equal(t, "lunch", e.Remarks)
		require.Equal(t, "u1", e.OwnerID)
		require.Equal(t, "u1@example.com", e.OwnerEmail)
		require.Equal(t, march10.Time(), e.CreatedAt)
	})

	coercions := []struct {
		name   string
		field  string
		value  any
		amount string
		date   models.Date
	}{
		{"float amount", "amount", 3.5, "3.5", models.Date{}},
		{"int amount", "amount", 7, "7", models.Date{}},
		{"string amount", "amount", " 4.20 ", "4.2", models.Date{}},
		{"decimal amount", "amount", decimal.RequireFromString("9.99"), "9.99", models.Date{}},
		{"string date", "date", "2024-01-02", "", models.Date{Year: 2024, Month: 1, Day: 2}},
		{"time date converted to UTC", "date", time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("W", -2*3600)), "", models.Date{Year: 2024, Month: 1, Day: 3}},
	}
	for _, tt := range coercions {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := base()
			doc[tt.field] = tt.value
			e, err := FromDocument("x", doc)
			require.NoError(t, err)
			if tt.amount != "" {
				require.Equal(t, tt.amount, e.Amount.String())
			}
			if !tt.date.IsZero() {
				require.Equal(t, tt.date, e.Date)
			}
		})
	}

	rejects := []struct {
		name  string
		field string
		value any
	}{
		{"negative amount", "amount", json.Number("-1")},
		{"non numeric amount", "amount", "abc"},
		{"missing amount", "amount", nil},
		{"bool amount", "amount", true},
		{"huge exponent amount", "amount", json.Number("1e50000000")},
		{"huge exponent string amount", "amount", "1e50000000"},
		{"huge float amount", "amount", 1e300},
		{"bad date string", "date", "10/03/2024"},
		{"numeric date", "date", 12345},
		{"missing category", "type", nil},
		{"blank category", "type", "  "},
		{"missing owner", "userId", nil},
		{"non string remarks", "remarks", 5},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc := base()
			if tt.value == nil {
				delete(doc, tt.field)
			} else {
				doc[tt.field] = tt.value
			}
			_, err := FromDocument("x", doc)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}

	t.Run("legacy category field", func(t *testing.T) {
		t.Parallel()
		doc := base()
		delete(doc, "type")
		doc["category"] = "Bills"
		e, err := FromDocument("x", doc)
		require.NoError(t, err)
		require.Equal(t, "Bills", e.Category)
	})
}

func TestToDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	e := models.Expense{
		Amount:     decimal.RequireFromString("42.10"),
		Date:       models.Date{Year: 2024, Month: 5, Day: 6},
		Category:   "Bills",
		Remarks:    "power",
		OwnerID:    "u1",
		OwnerEmail: "u1@example.com",
	}
	doc := ToDocument(e)
	require.Equal(t, store.ServerTimestamp, doc["createdAt"])

	delete(doc, "createdAt")
	back, err := FromDocument("id", doc)
	require.NoError(t, err)
	require.True(t, e.Amount.Equal(back.Amount))
	require.Equal(t, e.Date, back.Date)
	require.Equal(t, e.Category, back.Category)
	require.Equal(t, e.Remarks, back.Remarks)
	require.Equal(t, e.OwnerID, back.OwnerID)
}
