// Package filter narrows a ledger view with conjunctive predicates.
package filter

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
)

// Spec describes optional constraints. A nil bound and an empty or "All"
// category leave that dimension unconstrained. Bounds are inclusive.
type Spec struct {
	Category string
	Start    *core.Date
	End      *core.Date
	Min      *decimal.Decimal
	Max      *decimal.Decimal
}

// All is the spec that matches every transaction.
var All = Spec{Category: core.AllCategories}

// Inverted reports whether the spec's ranges are empty: start after end
// or min above max.
func (s Spec) Inverted() bool {
	if s.Start != nil && s.End != nil && s.Start.After(s.End.Time) {
		return true
	}
	if s.Min != nil && s.Max != nil && s.Min.GreaterThan(*s.Max) {
		return true
	}
	return false
}

// Key is a canonical string for the spec, usable as a cache key.
func (s Spec) Key() string {
	var b strings.Builder
	if !core.IsAllCategories(s.Category) {
		b.WriteString(core.CategoryKey(s.Category))
	}
	b.WriteByte('|')
	if s.Start != nil {
		b.WriteString(s.Start.String())
	}
	b.WriteByte('|')
	if s.End != nil {
		b.WriteString(s.End.String())
	}
	b.WriteByte('|')
	if s.Min != nil {
		b.WriteString(s.Min.String())
	}
	b.WriteByte('|')
	if s.Max != nil {
		b.WriteString(s.Max.String())
	}
	return b.String()
}

// Match reports whether t satisfies every constraint of s.
func (s Spec) Match(t core.Transaction) bool {
	if !core.IsAllCategories(s.Category) && core.CategoryKey(t.Category) != core.CategoryKey(s.Category) {
		return false
	}
	if s.Start != nil && t.Date.Before(s.Start.Time) {
		return false
	}
	if s.End != nil && t.Date.After(s.End.Time) {
		return false
	}
	if s.Min != nil && t.Amount.LessThan(*s.Min) {
		return false
	}
	if s.Max != nil && t.Amount.GreaterThan(*s.Max) {
		return false
	}
	return true
}

// Apply returns the transactions of view matching s, in their original
// order. An inverted spec yields an empty view.
func Apply(view core.View, s Spec) core.View {
	if s.Inverted() {
		return core.View{}
	}
	out := make(core.View, 0, len(view))
	for _, t := range view {
		if s.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortByDate returns a copy of view ordered by date. Equal dates keep
// their ledger order.
func SortByDate(view core.View, desc bool) core.View {
	out := slices.Clone(view)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		c := a.Date.Compare(b.Date.Time)
		if desc {
			return -c
		}
		return c
	})
	return out
}
