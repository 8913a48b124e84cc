package core

import "github.com/shopspring/decimal"

// GroupKind names the dimension a Breakdown is grouped by.
type GroupKind string

const (
	GroupByCategory GroupKind = "category"
	GroupByMonth    GroupKind = "month"
)

// Summary holds scalar statistics over a view. An empty view yields all
// zeros.
type Summary struct {
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
	Median  decimal.Decimal `json:"median"`
	Count   int             `json:"count"`
}

// GroupTotal is the summed amount of one group.
type GroupTotal struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
}

// Breakdown maps group keys to summed amounts in a defined order.
type Breakdown struct {
	Kind   GroupKind    `json:"kind"`
	Groups []GroupTotal `json:"groups"`
}

// Sum returns the sum of all group totals.
func (b Breakdown) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, g := range b.Groups {
		sum = sum.Add(g.Total)
	}
	return sum
}

// CategoryStats is one row of the category report.
type CategoryStats struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Average  decimal.Decimal `json:"average"`
	Count    int             `json:"count"`
}

// HistogramBin counts amounts in [Lower, Upper). The last bin of a
// histogram also includes its upper edge.
type HistogramBin struct {
	Lower decimal.Decimal `json:"lower"`
	Upper decimal.Decimal `json:"upper"`
	Count int             `json:"count"`
}

// Dashboard bundles every aggregate a chart consumer needs for one view.
type Dashboard struct {
	Summary    Summary         `json:"summary"`
	ByCategory Breakdown       `json:"by_category"`
	ByMonth    Breakdown       `json:"by_month"`
	Categories []CategoryStats `json:"categories"`
	Histogram  []HistogramBin  `json:"histogram"`
}
