package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/models"
	"gitlab.com/yelinaung/trackify/internal/store"
)

// Document field names of an expense.
const (
	FieldAmount    = "amount"
	FieldDate      = "date"
	FieldCategory  = "type"
	FieldRemarks   = "remarks"
	FieldOwnerID   = "userId"
	FieldOwnerMail = "userEmail"
	FieldCreatedAt = "createdAt"
)

// ErrMalformed marks a stored document that cannot be read as an expense.
var ErrMalformed = errors.New("malformed expense document")

func malformed(id, field, reason string) error {
	return fmt.Errorf("%w %s: field %q %s", ErrMalformed, id, field, reason)
}

// FromDocument converts a stored document into an expense.
func FromDocument(id string, doc store.Document) (models.Expense, error) {
	e := models.Expense{ID: id}

	amount, err := coerceAmount(doc[FieldAmount])
	if err != nil {
		return e, malformed(id, FieldAmount, err.Error())
	}
	e.Amount = amount

	date, err := coerceDate(doc[FieldDate])
	if err != nil {
		return e, malformed(id, FieldDate, err.Error())
	}
	e.Date = date

	category, ok := doc[FieldCategory].(string)
	if !ok {
		// Older documents used "category".
		category, ok = doc["category"].(string)
	}
	if !ok || strings.TrimSpace(category) == "" {
		return e, malformed(id, FieldCategory, "is missing")
	}
	e.Category = category

	owner, ok := doc[FieldOwnerID].(string)
	if !ok || owner == "" {
		return e, malformed(id, FieldOwnerID, "is missing")
	}
	e.OwnerID = owner

	if v, present := doc[FieldRemarks]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return e, malformed(id, FieldRemarks, "is not a string")
		}
		e.Remarks = s
	}
	if v, ok := doc[FieldOwnerMail].(string); ok {
		e.OwnerEmail = v
	}
	switch ts := doc[FieldCreatedAt].(type) {
	case store.Timestamp:
		e.CreatedAt = ts.Time()
	case time.Time:
		e.CreatedAt = ts.UTC()
	}

	return e, nil
}

// ToDocument converts an expense into the document written to the store.
// The store assigns createdAt.
func ToDocument(e models.Expense) store.Document {
	return store.Document{
		FieldAmount:    json.Number(e.Amount.String()),
		FieldDate:      store.TimestampOf(e.Date.Time()),
		FieldCategory:  e.Category,
		FieldRemarks:   e.Remarks,
		FieldOwnerID:   e.OwnerID,
		FieldOwnerMail: e.OwnerEmail,
		FieldCreatedAt: store.ServerTimestamp,
	}
}

func coerceAmount(v any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch x := v.(type) {
	case json.Number:
		d, err = ParseDecimal(x.String())
	case decimal.Decimal:
		d = x
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case int32:
		d = decimal.NewFromInt32(x)
	case string:
		d, err = ParseDecimal(x)
	case nil:
		return decimal.Zero, errors.New("is missing")
	default:
		return decimal.Zero, fmt.Errorf("has unsupported type %T", v)
	}
	switch {
	case errors.Is(err, ErrAmountRange):
		return decimal.Zero, errors.New("is out of range")
	case err != nil:
		return decimal.Zero, errors.New("is not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("is negative")
	}
	if CheckAmountRange(d) != nil {
		return decimal.Zero, errors.New("is out of range")
	}
	return d, nil
}

func coerceDate(v any) (models.Date, error) {
	switch x := v.(type) {
	case store.Timestamp:
		return models.DateOf(x.Time()), nil
	case time.Time:
		return models.DateOf(x.UTC()), nil
	case string:
		d, err := models.ParseDate(strings.TrimSpace(x))
		if err != nil {
			return models.Date{}, errors.New("is not a YYYY-MM-DD date")
		}
		return d, nil
	case nil:
		return models.Date{}, errors.New("is missing")
	default:
		return models.Date{}, fmt.Errorf("has unsupported type %T", v)
	}
}
