package dashboard

import (
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/trackify/internal/ledger"
	"gitlab.com/yelinaung/trackify/internal/models"
)

// FilterInput is the filter panel as typed. Unparsable or out-of-range
// values are inactive.
type FilterInput struct {
	Category string `json:"category"`
	From     string `json:"from"`
	To       string `json:"to"`
	Min      string `json:"min"`
	Max      string `json:"max"`
	Search   string `json:"search"`
}

// Filter converts the input into a ledger filter.
func (fi FilterInput) Filter() ledger.Filter {
	f := ledger.Filter{
		Category: strings.TrimSpace(fi.Category),
		Search:   fi.Search,
	}
	if d, err := models.ParseDate(strings.TrimSpace(fi.From)); err == nil {
		f.From = d
	}
	if d, err := models.ParseDate(strings.TrimSpace(fi.To)); err == nil {
		f.To = d
	}
	if d, err := ledger.ParseDecimal(fi.Min); err == nil {
		f.MinAmount = decimal.NewNullDecimal(d)
	}
	if d, err := ledger.ParseDecimal(fi.Max); err == nil {
		f.MaxAmount = decimal.NewNullDecimal(d)
	}
	return f
}

// Panels are the collapsible sections of the dashboard.
type Panels struct {
	Form    bool `json:"form"`
	Filters bool `json:"filters"`
	Chart   bool `json:"chart"`
}

// Message is the flash line above the list.
type Message struct {
	Text  string `json:"text,omitempty"`
	Error bool   `json:"error,omitempty"`
}

// ViewState is everything a dashboard remembers between requests besides
// the records themselves.
type ViewState struct {
	Filter  FilterInput    `json:"filter"`
	Sort    ledger.SortKey `json:"sort"`
	Form    ledger.Form    `json:"form"`
	EditID  string         `json:"editId,omitempty"`
	Panels  Panels         `json:"panels"`
	Message Message        `json:"message"`
	// FieldErrors holds per-field messages from the last rejected submit.
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// Editing reports whether the form updates an existing record.
func (s ViewState) Editing() bool {
	return s.EditID != ""
}
