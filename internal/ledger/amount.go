package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxAmountDigits is the number of integer digits an amount may have.
	MaxAmountDigits = 15
	// AmountPlaces is the number of decimal places a typed amount may have.
	AmountPlaces = 2

	maxAmountInput = 40
	// Exponents outside this window make decimal arithmetic rescale through
	// huge powers of ten.
	minAmountExponent = -maxAmountInput
	maxAmountExponent = MaxAmountDigits
)

var (
	// ErrAmountSyntax is returned for text that is not a decimal number.
	ErrAmountSyntax = errors.New("amount is not a number")
	// ErrAmountRange is returned for amounts of MaxAmountDigits or more integer digits.
	ErrAmountRange = errors.New("amount is out of range")
)

var maxAmount = decimal.New(1, MaxAmountDigits)

// ParseDecimal parses s as a decimal whose absolute value stays below
// 10^MaxAmountDigits. Sign and precision are left to the caller.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxAmountInput {
		return decimal.Zero, ErrAmountRange
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountSyntax
	}
	if err := CheckAmountRange(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// CheckAmountRange rejects decimals whose exponent or magnitude would make
// later comparisons and sums expensive.
func CheckAmountRange(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < minAmountExponent || exp > maxAmountExponent {
		return ErrAmountRange
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return ErrAmountRange
	}
	return nil
}
