package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical on-disk and wire format for transaction dates.
const DateLayout = "2006-01-02"

// AllCategories is the category sentinel that disables category filtering.
const AllCategories = "All"

// DefaultCategories are offered to the user even before any transaction
// uses them.
var DefaultCategories = []string{"Food", "Transport", "Utilities", "Shopping", "Entertainment", "Other"}

type (
	// Date is a calendar date without a time component, always UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is a single expense record.
	Transaction struct {
		Date        Date            `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
	}

	// TransactionInput is raw, unvalidated user input for a new transaction.
	TransactionInput struct {
		Date        string
		Amount      string
		Category    string
		Description string
	}

	// View is a read-only, ordered subsequence of a ledger.
	View []Transaction
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. time.Parse rejects out-of-range
// days such as 2024-02-30, so a successful parse is a valid calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrEmptyDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// YearMonth returns the canonical "YYYY-MM" month key.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDate(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeCategory trims the label and collapses internal runs of
// whitespace. Case is preserved for display.
func NormalizeCategory(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CategoryKey is the comparison key for a category label: normalized and
// case-folded, so "food", " Food " and "FOOD" group together.
func CategoryKey(s string) string {
	return strings.ToLower(NormalizeCategory(s))
}

// IsAllCategories reports whether c disables category filtering.
func IsAllCategories(c string) bool {
	c = NormalizeCategory(c)
	return c == "" || strings.EqualFold(c, AllCategories)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Value: t.Amount.String(), Err: ErrNegativeAmount}
	}
	return nil
}

// NewTransaction validates raw input and builds a Transaction with a
// canonical amount and category. Description is trimmed only.
func NewTransaction(in TransactionInput) (Transaction, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "date", Value: in.Date, Err: err}
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, &ValidationError{Field: "amount", Value: in.Amount, Err: err}
	}
	return Transaction{
		Date:        date,
		Amount:      amount,
		Category:    NormalizeCategory(in.Category),
		Description: strings.TrimSpace(in.Description),
	}, nil
}
