// Package report renders expenses as downloadable files and charts.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// Format is an export file format.
type Format string

// Export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx".
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Scope selects which records are exported.
type Scope string

// Export scopes.
const (
	ScopeAll      Scope = "all"
	ScopeFiltered Scope = "filtered"
)

// ParseScope maps anything but "all" to ScopeFiltered.
func ParseScope(s string) Scope {
	if Scope(s) == ScopeAll {
		return ScopeAll
	}
	return ScopeFiltered
}

// SheetName is the worksheet holding exported expenses.
const SheetName = "Expenses"

// ErrEmpty is returned when there is nothing to export or chart.
var ErrEmpty = errors.New("no expenses")

var header = []string{"ID", "Amount", "Date", "Category", "Remarks"}

// Filename builds a name like "expenses_filtered_2024-03-15.csv".
func Filename(scope Scope, format Format, now time.Time) string {
	return fmt.Sprintf("expenses_%s_%s.%s", scope, now.Format(models.DateLayout), format)
}

// Render produces the export in format.
func Render(format Format, expenses []models.Expense) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExpensesCSV(expenses)
	case FormatXLSX:
		return ExpensesXLSX(expenses)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ExpensesCSV generates a CSV file from a list of expenses.
func ExpensesCSV(expenses []models.Expense) ([]byte, error) {
	if len(expenses) == 0 {
		return nil, ErrEmpty
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		row := []string{
			expenses[i].ID,
			expenses[i].Amount.StringFixed(2),
			expenses[i].Date.String(),
			expenses[i].Category,
			expenses[i].Remarks,
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExpensesXLSX generates a workbook with one Expenses sheet. Amounts are
// numeric cells with two decimals.
func ExpensesXLSX(expenses []models.Expense) ([]byte, error) {
	if len(expenses) == 0 {
		return nil, ErrEmpty
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write XLSX header: %w", err)
	}

	for i := range expenses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address XLSX row: %w", err)
		}
		row := []any{
			expenses[i].ID,
			expenses[i].Amount.InexactFloat64(),
			expenses[i].Date.String(),
			expenses[i].Category,
			expenses[i].Remarks,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write XLSX row: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("failed to create amount style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(2, len(expenses)+1)
	if err != nil {
		return nil, fmt.Errorf("failed to address XLSX row: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "B2", last, style); err != nil {
		return nil, fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "E", "E", 40); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write XLSX: %w", err)
	}
	return buf.Bytes(), nil
}
