package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half away from zero
		{"1.004", "1", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"+3", "3", true},
		{"-0", "0", true},
		{"1e3", "", false},
		{"1E3", "", false},
		{"1e10000000", "", false},
		{"1.5e-2", "", false},
		{"0x10", "", false},
		{".", "", false},
		{"+", "", false},
		{",5", "0.5", true},
		{"999999999999999.99", "999999999999999.99", true},
		{"1000000000000000", "", false},
		{"0000000000000000001", "1", true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
	if _, err := ParseAmount("-0.5"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := ParseAmount("1e3"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("exponent: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ParseAmount(strings.Repeat("9", MaxAmountDigits+1)); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"1794.09": "1794.09",
		"5":       "5.00",
		"0":       "0.00",
		"2.5":     "2.50",
	}
	for in, want := range cases {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}
