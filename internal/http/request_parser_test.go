package http

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"spendlog/internal/core"
)

func TestParseFilterSpec(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{name: "empty query matches all", query: ""},
		{name: "full spec", query: "category=Food&start=2024-01-01&end=2024-12-31&min=1&max=10.5"},
		{name: "bad start", query: "start=01/02/2024", wantErr: true},
		{name: "bad end", query: "end=2024-02-30", wantErr: true},
		{name: "bad min", query: "min=abc", wantErr: true},
		{name: "negative max", query: "max=-1", wantErr: true},
		{name: "exponent min", query: "min=1e3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			spec, err := ParseFilterSpec(q)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("expected ErrBadRequest, got %v", err)
				}
				var perr *ParamError
				if !errors.As(err, &perr) || perr.Param == "" {
					t.Fatalf("expected ParamError naming the parameter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.query == "" {
				if !core.IsAllCategories(spec.Category) || spec.Start != nil || spec.Min != nil {
					t.Fatalf("expected unconstrained spec, got %+v", spec)
				}
			}
		})
	}
}

func TestParseFilterSpecValues(t *testing.T) {
	q, _ := url.ParseQuery("category=+Eating++out+&start=2024-01-01&max=10,5")
	spec, err := ParseFilterSpec(q)
	if err != nil {
		t.Fatal(err)
	}
	if spec.Category != "Eating out" {
		t.Errorf("category = %q", spec.Category)
	}
	if spec.Start == nil || spec.Start.String() != "2024-01-01" {
		t.Errorf("start = %v", spec.Start)
	}
	if spec.Max == nil || spec.Max.String() != "10.5" {
		t.Errorf("max = %v", spec.Max)
	}
	if spec.End != nil || spec.Min != nil {
		t.Errorf("unset bounds should be nil: %+v", spec)
	}
}

func TestParseSortBinsGroup(t *testing.T) {
	for in, want := range map[string][2]bool{"": {false, false}, "asc": {true, false}, "date": {true, false}, "DESC": {true, true}, "-date": {true, true}} {
		sorted, desc, err := ParseSort(url.Values{"sort": {in}})
		if err != nil || sorted != want[0] || desc != want[1] {
			t.Errorf("sort=%q: got %v %v %v", in, sorted, desc, err)
		}
	}
	if _, _, err := ParseSort(url.Values{"sort": {"amount"}}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown sort should be rejected, got %v", err)
	}

	if n, err := ParseBins(url.Values{}, 20); err != nil || n != 20 {
		t.Errorf("default bins: %d %v", n, err)
	}
	if n, err := ParseBins(url.Values{"bins": {"5"}}, 20); err != nil || n != 5 {
		t.Errorf("bins=5: %d %v", n, err)
	}
	for _, bad := range []string{"0", "201", "x"} {
		if _, err := ParseBins(url.Values{"bins": {bad}}, 20); !errors.Is(err, ErrBadRequest) {
			t.Errorf("bins=%s should fail, got %v", bad, err)
		}
	}

	if g, err := ParseGroup(url.Values{"group": {"month"}}); err != nil || g != core.GroupByMonth {
		t.Errorf("group=month: %v %v", g, err)
	}
	if g, err := ParseGroup(url.Values{}); err != nil || g != core.GroupByCategory {
		t.Errorf("default group: %v %v", g, err)
	}
	if _, err := ParseGroup(url.Values{"group": {"year"}}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("group=year should fail, got %v", err)
	}
}

func TestParseTransactionInput(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        core.TransactionInput
		wantErr     bool
	}{
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        "date=2024-06-04&amount=1794.09&category=Shopping&description=Shoes",
			want:        core.TransactionInput{Date: "2024-06-04", Amount: "1794.09", Category: "Shopping", Description: "Shoes"},
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"date":"2024-06-04","amount":12.5,"category":"Food","description":"Lunch\u0007"}`,
			want:        core.TransactionInput{Date: "2024-06-04", Amount: "12.5", Category: "Food", Description: "Lunch"},
		},
		{
			name:        "broken json",
			contentType: "application/json",
			body:        `{"date":`,
			wantErr:     true,
		},
		{
			name: "empty body",
			want: core.TransactionInput{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/transactions", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			got, err := ParseTransactionInput(req)
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Fatalf("expected ErrBadRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Fatalf("got %q", got)
	}
}
