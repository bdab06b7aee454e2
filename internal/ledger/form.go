package ledger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// ErrValidation is wrapped by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError maps form fields to messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, e.Fields[k])
	}
	return strings.Join(msgs, " ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Form is the raw expense form input.
type Form struct {
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Remarks  string `json:"remarks"`
}

// Entry is a validated form.
type Entry struct {
	Amount   decimal.Decimal
	Date     models.Date
	Category string
	Remarks  string
}

// ParseAmount reads a non-negative amount with at most AmountPlaces decimal
// places and fewer than MaxAmountDigits integer digits.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("Amount is required.")
	}
	d, err := ParseDecimal(s)
	switch {
	case errors.Is(err, ErrAmountRange):
		return decimal.Zero, fmt.Errorf("Amount must be less than %s.", maxAmount.String())
	case err != nil:
		return decimal.Zero, errors.New("Amount must be a number.")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("Amount cannot be negative.")
	}
	if !d.Equal(d.Truncate(AmountPlaces)) {
		return decimal.Zero, fmt.Errorf("Amount can have at most %d decimal places.", AmountPlaces)
	}
	return d, nil
}

// ParseForm validates f. With strict set, the category must be one of
// models.DefaultCategories.
func ParseForm(f Form, strict bool) (Entry, error) {
	fields := make(map[string]string)
	var entry Entry

	amount, err := ParseAmount(f.Amount)
	if err != nil {
		fields["amount"] = err.Error()
	}
	entry.Amount = amount

	date, err := models.ParseDate(strings.TrimSpace(f.Date))
	if err != nil {
		fields["date"] = "Date must be in YYYY-MM-DD format."
	}
	entry.Date = date

	category := strings.TrimSpace(f.Category)
	switch {
	case category == "":
		fields["category"] = "Category is required."
	case utf8.RuneCountInString(category) > models.MaxCategoryNameLength:
		fields["category"] = fmt.Sprintf("Category must be at most %d characters.", models.MaxCategoryNameLength)
	case strict && !models.IsDefaultCategory(category):
		fields["category"] = fmt.Sprintf("Category must be one of %s.", strings.Join(models.DefaultCategories, ", "))
	}
	entry.Category = category

	remarks := strings.TrimSpace(f.Remarks)
	if utf8.RuneCountInString(remarks) > models.MaxRemarksLength {
		fields["remarks"] = fmt.Sprintf("Remarks must be at most %d characters.", models.MaxRemarksLength)
	}
	entry.Remarks = remarks

	if len(fields) > 0 {
		return Entry{}, &ValidationError{Fields: fields}
	}
	return entry, nil
}

// FormOf prefills a form from an existing expense.
func FormOf(e models.Expense) Form {
	return Form{
		Amount:   e.Amount.String(),
		Date:     e.Date.String(),
		Category: e.Category,
		Remarks:  e.Remarks,
	}
}
