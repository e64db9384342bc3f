package core

import (
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	ViewDashboard    View = "dashboard"
	ViewTransactions View = "transactions"
	ViewCategories   View = "categories"
	ViewCharts       View = "charts"
	ViewSettings     View = "settings"
)

const (
	ModalNone        Modal = ""
	ModalTransaction Modal = "transaction"
	ModalCategory    Modal = "category"
)

const (
	// DefaultCurrency is used whenever no valid currency code is available.
	DefaultCurrency = "USD"

	// AppVersion tags exported documents so older exports stay recognizable.
	AppVersion = "1.0.0"
)

type (
	TransactionType string

	// View names one of the fixed application screens.
	View string

	// Modal identifies the currently open modal dialog, or ModalNone.
	Modal string

	// Transaction is a single income or expense record. Amount carries the
	// magnitude only; the sign lives in Type.
	Transaction struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		Date        Date            `json:"date"`
	}
)

// DefaultCategories is the fixed built-in category set seeded on first run.
// These names can never be removed.
var DefaultCategories = []string{
	"Salary",
	"Freelance",
	"Investments",
	"Business",
	"Gifts",
	"Other Income",
	"Groceries",
	"Dining Out",
	"Transport",
	"Housing",
	"Utilities",
	"Healthcare",
	"Insurance",
	"Entertainment",
	"Shopping",
	"Education",
	"Travel",
	"Subscriptions",
	"Personal Care",
}

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// IsDefaultCategory reports whether name belongs to the built-in set.
// Matching is exact and case-sensitive.
func IsDefaultCategory(name string) bool {
	return slices.Contains(DefaultCategories, name)
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (v View) Valid() bool {
	switch v {
	case ViewDashboard, ViewTransactions, ViewCategories, ViewCharts, ViewSettings:
		return true
	}
	return false
}

// Validate checks a transaction at the UI boundary. The store itself accepts
// whatever it is given; callers run this before mutating.
func (t Transaction) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Clone returns an independent copy. Decimal and Date are value types, so a
// plain copy is sufficient; the method exists to keep the copy contract
// explicit at call sites.
func (t Transaction) Clone() Transaction {
	return t
}

// NormalizeCurrency validates and upper-cases an ISO-ish currency code.
// Codes shorter than three letters are rejected.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) < 3 {
		return "", ErrInvalidCurrency
	}
	return strings.ToUpper(code), nil
}
