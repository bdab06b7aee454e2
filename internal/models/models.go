// Package models defines the domain entities for the expense tracker.
package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// MaxRemarksLength is the maximum allowed length for expense remarks.
const MaxRemarksLength = 500

// Categories offered by the expense form.
const (
	CategoryFood      = "Food"
	CategoryTransport = "Transport"
	CategoryShopping  = "Shopping"
	CategoryBills     = "Bills"
	CategoryOther     = "Other"
)

// DefaultCategories lists the fixed category set in display order.
var DefaultCategories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryOther,
}

// IsDefaultCategory reports whether name belongs to the fixed category set.
func IsDefaultCategory(name string) bool {
	return slices.Contains(DefaultCategories, name)
}

// Collection names in the document store.
const (
	CollectionExpenses = "expenses"
	CollectionUsers    = "users"
)

// User is an authenticated identity.
type User struct {
	ID    string
	Email string
	Name  string
}

// Profile is the user record written once at sign-up.
type Profile struct {
	ID    string
	Name  string
	Email string
}

// Expense represents a single expense entry.
type Expense struct {
	ID         string
	Amount     decimal.Decimal
	Date       Date
	Category   string
	Remarks    string
	OwnerID    string
	OwnerEmail string
	CreatedAt  time.Time
}
