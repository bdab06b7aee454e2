package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/trackify/internal/models"
)

func TestParseDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"12.50", "12.5", nil},
		{" 7 ", "7", nil},
		{"-3", "-3", nil},
		{"1e3", "1000", nil},
		{"0.001", "0.001", nil},
		{"999999999999999.99", "999999999999999.99", nil},
		{"1000000000000000", "", ErrAmountRange},
		{"-1000000000000000", "", ErrAmountRange},
		{"1e15", "", ErrAmountRange},
		{"1e50000000", "", ErrAmountRange},
		{"1e-50000000", "", ErrAmountRange},
		{"0e99999", "", ErrAmountRange},
		{strings.Repeat("1", 41), "", ErrAmountRange},
		{"abc", "", ErrAmountSyntax},
		{"", "", ErrAmountSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			d, err := ParseDecimal(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.True(t, d.IsZero())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, d.String())
		})
	}
}

func TestCheckAmountRange(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckAmountRange(decimal.RequireFromString("12.50")))
	require.NoError(t, CheckAmountRange(decimal.Zero))
	require.ErrorIs(t, CheckAmountRange(decimal.NewFromFloat(1e300)), ErrAmountRange)
	require.ErrorIs(t, CheckAmountRange(decimal.New(1, -100)), ErrAmountRange)
	require.ErrorIs(t, CheckAmountRange(decimal.New(1, 50000000)), ErrAmountRange)
}

func TestFilterWithLargestAmountBound(t *testing.T) {
	t.Parallel()

	records := []models.Expense{
		{ID: "a", Amount: decimal.RequireFromString("12.50")},
		{ID: "b", Amount: decimal.RequireFromString("999999999999999.99")},
	}
	bound, err := ParseDecimal("999999999999999")
	require.NoError(t, err)

	got := Filter{MinAmount: decimal.NewNullDecimal(bound)}.Apply(records)
	require.Len(t, got, 1)
	require.Equal(t, "b", got[0].ID)
}
