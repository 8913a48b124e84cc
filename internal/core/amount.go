// Package core provides amount parsing and formatting utilities.
//
// Amounts are currency-agnostic decimals. Every amount entering the
// system is rounded to AmountScale places so that the stored text form
// is stable across load/save cycles.
package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places kept for amounts.
const AmountScale = 2

// MaxAmountDigits bounds the integer part of an amount.
const MaxAmountDigits = 15

// plainAmount matches an optionally signed run of digits with at most one
// dot or comma separator. Exponents are not accepted.
var plainAmount = regexp.MustCompile(`^[+-]?([0-9]*)(?:[.,]([0-9]+))?$`)

// ParseAmount converts a decimal string to a non-negative amount rounded to
// two places (half away from zero).
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("-5")     -> 0, ErrNegativeAmount
//	ParseAmount("1e3")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	m := plainAmount.FindStringSubmatch(s)
	if m == nil || m[1]+m[2] == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if len(strings.TrimLeft(m[1], "0")) > MaxAmountDigits {
		return decimal.Zero, ErrAmountTooLarge
	}
	canonical := m[1]
	if canonical == "" {
		canonical = "0"
	}
	if m[2] != "" {
		canonical += "." + m[2]
	}
	if strings.HasPrefix(s, "-") {
		canonical = "-" + canonical
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d.Round(AmountScale), nil
}

// FormatAmount renders an amount with exactly two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
