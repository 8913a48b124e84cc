package aggregate

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/filter"
)

func tx(y, m, d int, amount, category string) core.Transaction {
	return core.Transaction{Date: core.NewDate(y, m, d), Amount: decimal.RequireFromString(amount), Category: category}
}

func fixture() core.View {
	return core.View{
		tx(2024, 6, 4, "1794.09", "Shopping"),
		tx(2024, 4, 26, "1176.24", "Education"),
		tx(2024, 5, 1, "12.50", "food"),
		tx(2024, 5, 2, "40.00", "Food "),
		tx(2024, 6, 10, "15.00", "Shopping"),
		tx(2023, 12, 31, "3.00", ""),
	}
}

func mustEqual(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestSummarizeShoppingScenario(t *testing.T) {
	view := filter.Apply(core.View{
		tx(2024, 6, 4, "1794.09", "Shopping"),
		tx(2024, 4, 26, "1176.24", "Education"),
	}, filter.Spec{Category: "Shopping"})

	s := Summarize(view)
	if s.Count != 1 {
		t.Fatalf("count = %d, want 1", s.Count)
	}
	mustEqual(t, "total", s.Total, "1794.09")
	mustEqual(t, "average", s.Average, "1794.09")
	mustEqual(t, "median", s.Median, "1794.09")
}

func TestSummarizeEmptyIsZero(t *testing.T) {
	for _, view := range []core.View{nil, filter.Apply(nil, filter.All), filter.Apply(fixture(), filter.Spec{Category: "Travel"})} {
		s := Summarize(view)
		if s.Count != 0 || !s.Total.IsZero() || !s.Average.IsZero() || !s.Median.IsZero() {
			t.Fatalf("expected all zero, got %+v", s)
		}
	}
}

func TestSummarizeMedian(t *testing.T) {
	cases := []struct {
		amounts []string
		median  string
		average string
	}{
		{[]string{"5"}, "5", "5"},
		{[]string{"3", "1", "2"}, "2", "2"},
		{[]string{"4", "1", "3", "2"}, "2.5", "2.5"},
		{[]string{"10", "0"}, "5", "5"},
		{[]string{"1", "1", "2"}, "1", "1.33"},
	}
	for _, tc := range cases {
		var view core.View
		for _, a := range tc.amounts {
			view = append(view, tx(2024, 1, 1, a, "x"))
		}
		s := Summarize(view)
		mustEqual(t, "median", s.Median, tc.median)
		mustEqual(t, "average", s.Average, tc.average)
	}
}

func TestSummarizeDoesNotReorderView(t *testing.T) {
	view := fixture()
	Summarize(view)
	if view[0].Category != "Shopping" || view[5].Category != "" {
		t.Fatalf("Summarize must not mutate its input")
	}
}

func TestGroupByCategory(t *testing.T) {
	b := GroupByCategory(fixture())
	if b.Kind != core.GroupByCategory {
		t.Fatalf("kind = %s", b.Kind)
	}
	want := []struct{ key, total string }{
		{"Shopping", "1809.09"},
		{"Education", "1176.24"},
		{"food", "52.50"},
		{"", "3.00"},
	}
	if len(b.Groups) != len(want) {
		t.Fatalf("got %d groups, want %d: %+v", len(b.Groups), len(want), b.Groups)
	}
	for i, w := range want {
		if b.Groups[i].Key != w.key {
			t.Fatalf("group %d key = %q, want %q", i, b.Groups[i].Key, w.key)
		}
		mustEqual(t, w.key, b.Groups[i].Total, w.total)
	}
}

func TestGroupByCategorySumsToTotal(t *testing.T) {
	specs := []filter.Spec{filter.All, {Category: "Food"}, {Min: func() *decimal.Decimal { d := decimal.NewFromInt(14); return &d }()}}
	for _, s := range specs {
		view := filter.Apply(fixture(), s)
		if sum, total := GroupByCategory(view).Sum(), Summarize(view).Total; !sum.Equal(total) {
			t.Fatalf("spec %q: category sum %s != total %s", s.Key(), sum, total)
		}
	}
}

func TestGroupByMonth(t *testing.T) {
	b := GroupByMonth(fixture())
	want := []struct{ key, total string }{
		{"2023-12", "3.00"},
		{"2024-04", "1176.24"},
		{"2024-05", "52.50"},
		{"2024-06", "1809.09"},
	}
	if len(b.Groups) != len(want) {
		t.Fatalf("got %+v", b.Groups)
	}
	for i, w := range want {
		if b.Groups[i].Key != w.key {
			t.Fatalf("group %d key = %q, want %q", i, b.Groups[i].Key, w.key)
		}
		mustEqual(t, w.key, b.Groups[i].Total, w.total)
	}
	if empty := GroupByMonth(nil); len(empty.Groups) != 0 {
		t.Fatalf("expected no groups for empty view")
	}
}

func TestCategoryStatistics(t *testing.T) {
	stats := CategoryStatistics(fixture())
	order := []string{"Shopping", "Education", "food", ""}
	for i, c := range order {
		if stats[i].Category != c {
			t.Fatalf("position %d = %q, want %q", i, stats[i].Category, c)
		}
	}
	if stats[0].Count != 2 {
		t.Fatalf("Shopping count = %d", stats[0].Count)
	}
	mustEqual(t, "Shopping average", stats[0].Average, "904.55")
	mustEqual(t, "food average", stats[2].Average, "26.25")

	tied := CategoryStatistics(core.View{tx(2024, 1, 1, "5", "b"), tx(2024, 1, 1, "5", "a")})
	if tied[0].Category != "a" {
		t.Fatalf("ties should be ordered by name, got %+v", tied)
	}
}

func TestHistogram(t *testing.T) {
	view := core.View{
		tx(2024, 1, 1, "0", "x"),
		tx(2024, 1, 1, "2.5", "x"),
		tx(2024, 1, 1, "5", "x"),
		tx(2024, 1, 1, "9.99", "x"),
		tx(2024, 1, 1, "10", "x"),
	}
	bins := Histogram(view, 4)
	if len(bins) != 4 {
		t.Fatalf("got %d bins", len(bins))
	}
	wantCounts := []int{1, 1, 1, 2}
	total := 0
	for i, b := range bins {
		if b.Count != wantCounts[i] {
			t.Fatalf("bin %d [%s,%s) count = %d, want %d", i, b.Lower, b.Upper, b.Count, wantCounts[i])
		}
		total += b.Count
	}
	if total != len(view) {
		t.Fatalf("bins hold %d amounts, want %d", total, len(view))
	}
	mustEqual(t, "last upper", bins[3].Upper, "10")

	if got := Histogram(nil, 4); len(got) != 0 {
		t.Fatalf("empty view should have no bins")
	}
	flat := Histogram(core.View{tx(2024, 1, 1, "3", "x"), tx(2024, 1, 2, "3", "y")}, 0)
	if len(flat) != 1 || flat[0].Count != 2 {
		t.Fatalf("equal amounts should share one bin, got %+v", flat)
	}
	if got := Histogram(fixture(), 0); len(got) != DefaultHistogramBins {
		t.Fatalf("default bins = %d", len(got))
	}
}

func TestCategories(t *testing.T) {
	got := Categories(fixture())
	want := append(append([]string{}, core.DefaultCategories...), "Education")
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBuildDashboard(t *testing.T) {
	view := fixture()
	d, err := BuildDashboard(context.Background(), view, 5)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.Summary.Count != len(view) || len(d.ByMonth.Groups) != 4 || len(d.Histogram) != 5 || len(d.Categories) != 4 {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
	if !d.ByCategory.Sum().Equal(d.Summary.Total) {
		t.Fatalf("category sum %s != total %s", d.ByCategory.Sum(), d.Summary.Total)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildDashboard(ctx, view, 5); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
