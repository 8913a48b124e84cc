package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDate      = errors.New("empty date")
	ErrInvalidDate    = errors.New("invalid date, expected YYYY-MM-DD")
	ErrEmptyAmount    = errors.New("empty amount")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrAmountTooLarge = errors.New("amount has too many digits")
	ErrBadHeader      = errors.New("unexpected header")
	ErrMissingColumn  = errors.New("missing column")

	// ErrNotFound reports that the ledger storage does not exist yet.
	// It is a first-run condition, not a failure.
	ErrNotFound = errors.New("ledger storage not found")
)

// ValidationError reports malformed or out-of-range input on append.
// The ledger is left untouched when it is returned.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// MalformedStoreError reports persisted data that does not match the ledger
// schema. Row is 1-based. For tabular files it is the line in the file where
// the offending field starts (the header is line 1); for SQLite it is the
// record position.
type MalformedStoreError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *MalformedStoreError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("malformed ledger at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("malformed ledger at row %d, column %s (%q): %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *MalformedStoreError) Unwrap() error { return e.Err }

// StorageIOError wraps filesystem or database failures while persisting.
// It is never retried automatically.
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error { return e.Err }
