// Package aggregate computes statistics and grouped totals over a view.
// Every function is pure and safe for concurrent use. An empty view
// yields zero values, never an error.
package aggregate

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/core"
)

// DefaultHistogramBins matches the amount distribution chart.
const DefaultHistogramBins = 20

var two = decimal.NewFromInt(2)

// Summarize returns total, average, median and count of the view.
func Summarize(view core.View) core.Summary {
	if len(view) == 0 {
		return core.Summary{Total: decimal.Zero, Average: decimal.Zero, Median: decimal.Zero}
	}

	amounts := make([]decimal.Decimal, len(view))
	total := decimal.Zero
	for i, t := range view {
		amounts[i] = t.Amount
		total = total.Add(t.Amount)
	}

	return core.Summary{
		Total:   total,
		Average: mean(total, len(view)),
		Median:  median(amounts),
		Count:   len(view),
	}
}

func mean(total decimal.Decimal, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(n)), core.AmountScale)
}

// median sorts amounts in place.
func median(amounts []decimal.Decimal) decimal.Decimal {
	n := len(amounts)
	if n == 0 {
		return decimal.Zero
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i].LessThan(amounts[j]) })
	if n%2 == 1 {
		return amounts[n/2]
	}
	return amounts[n/2-1].Add(amounts[n/2]).DivRound(two, core.AmountScale)
}

// GroupByCategory sums amounts per category. Labels are matched without
// regard to case or surrounding whitespace; each group is keyed by the
// first spelling seen and groups appear in order of first appearance.
func GroupByCategory(view core.View) core.Breakdown {
	b := core.Breakdown{Kind: core.GroupByCategory, Groups: []core.GroupTotal{}}
	index := make(map[string]int)
	for _, t := range view {
		k := core.CategoryKey(t.Category)
		i, ok := index[k]
		if !ok {
			i = len(b.Groups)
			index[k] = i
			b.Groups = append(b.Groups, core.GroupTotal{Key: core.NormalizeCategory(t.Category), Total: decimal.Zero})
		}
		b.Groups[i].Total = b.Groups[i].Total.Add(t.Amount)
	}
	return b
}

// GroupByMonth sums amounts per "YYYY-MM", chronologically. Months without
// transactions are omitted.
func GroupByMonth(view core.View) core.Breakdown {
	b := core.Breakdown{Kind: core.GroupByMonth, Groups: []core.GroupTotal{}}
	index := make(map[string]int)
	for _, t := range view {
		k := t.Date.YearMonth()
		i, ok := index[k]
		if !ok {
			i = len(b.Groups)
			index[k] = i
			b.Groups = append(b.Groups, core.GroupTotal{Key: k, Total: decimal.Zero})
		}
		b.Groups[i].Total = b.Groups[i].Total.Add(t.Amount)
	}
	// "YYYY-MM" sorts lexically in calendar order.
	sort.Slice(b.Groups, func(i, j int) bool { return b.Groups[i].Key < b.Groups[j].Key })
	return b
}

// CategoryStatistics returns per-category total, average and count,
// largest total first; ties are ordered by category name.
func CategoryStatistics(view core.View) []core.CategoryStats {
	byCat := GroupByCategory(view)
	counts := make(map[string]int, len(byCat.Groups))
	for _, t := range view {
		counts[core.CategoryKey(t.Category)]++
	}

	stats := make([]core.CategoryStats, 0, len(byCat.Groups))
	for _, g := range byCat.Groups {
		n := counts[core.CategoryKey(g.Key)]
		stats = append(stats, core.CategoryStats{
			Category: g.Key,
			Total:    g.Total,
			Average:  mean(g.Total, n),
			Count:    n,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if c := stats[i].Total.Cmp(stats[j].Total); c != 0 {
			return c > 0
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// Histogram splits the amount range of the view into bins of equal width.
// The last bin includes its upper edge. When every amount is equal a
// single bin holds them all.
func Histogram(view core.View, bins int) []core.HistogramBin {
	if len(view) == 0 {
		return []core.HistogramBin{}
	}
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	lo, hi := view[0].Amount, view[0].Amount
	for _, t := range view[1:] {
		lo = decimal.Min(lo, t.Amount)
		hi = decimal.Max(hi, t.Amount)
	}
	if lo.Equal(hi) {
		return []core.HistogramBin{{Lower: lo, Upper: hi, Count: len(view)}}
	}

	width := hi.Sub(lo).Div(decimal.NewFromInt(int64(bins)))
	out := make([]core.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo.Add(width.Mul(decimal.NewFromInt(int64(i))))
		out[i].Upper = lo.Add(width.Mul(decimal.NewFromInt(int64(i + 1))))
	}
	out[bins-1].Upper = hi

	for _, t := range view {
		i := int(t.Amount.Sub(lo).Div(width).IntPart())
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// Categories lists the default categories followed by any other label
// used in the view, in order of first use.
func Categories(view core.View) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(c string) {
		c = core.NormalizeCategory(c)
		k := core.CategoryKey(c)
		if c == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	for _, c := range core.DefaultCategories {
		add(c)
	}
	for _, t := range view {
		add(t.Category)
	}
	return out
}

// BuildDashboard computes every aggregate of the view concurrently.
func BuildDashboard(ctx context.Context, view core.View, bins int) (core.Dashboard, error) {
	var d core.Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Summary = Summarize(view)
		return ctx.Err()
	})
	g.Go(func() error {
		d.ByCategory = GroupByCategory(view)
		return ctx.Err()
	})
	g.Go(func() error {
		d.ByMonth = GroupByMonth(view)
		return ctx.Err()
	})
	g.Go(func() error {
		d.Categories = CategoryStatistics(view)
		return ctx.Err()
	})
	g.Go(func() error {
		d.Histogram = Histogram(view, bins)
		return ctx.Err()
	})

	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}
