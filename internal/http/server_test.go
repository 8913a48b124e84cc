package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage/memory"
)

type failingStore struct {
	*memory.Store
	fail bool
}

func (f *failingStore) Save(ctx context.Context, l ledger.Ledger) error {
	if f.fail {
		return &core.StorageIOError{Op: "rename", Path: "expenses.csv", Err: errors.New("disk full")}
	}
	return f.Store.Save(ctx, l)
}

func newTestServer(t *testing.T, store ledger.Store) (*Server, *services.LedgerService) {
	t.Helper()
	svc := services.NewLedgerService(store, nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv, err := NewServer(":0", svc, Options{
		RateLimitPerMinute: 1000,
		Logger:             log.New(log.Config{Output: &bytes.Buffer{}}),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, svc
}

func seeded() *memory.Store {
	return memory.NewSeeded(
		core.Transaction{Date: core.NewDate(2024, 6, 4), Amount: mustAmount("1794.09"), Category: "Shopping", Description: "Shoes"},
		core.Transaction{Date: core.NewDate(2024, 4, 26), Amount: mustAmount("1176.24"), Category: "Education", Description: "Online course"},
	)
}

func mustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func do(t *testing.T, srv *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, memory.New())
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}
}

func TestReadyBeforeLoad(t *testing.T) {
	svc := services.NewLedgerService(memory.New(), nil)
	srv, err := NewServer(":0", svc, Options{Logger: log.New(log.Config{Output: &bytes.Buffer{}})})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown(context.Background())
	if rr := do(t, srv, http.MethodGet, "/readyz", "", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestFilterAndSummaryScenario(t *testing.T) {
	srv, _ := newTestServer(t, seeded())

	rr := do(t, srv, http.MethodGet, "/api/transactions?category=shopping", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	list := decode[listResponse](t, rr)
	if list.Count != 1 || list.Transactions[0].Description != "Shoes" || list.Transactions[0].Amount != "1794.09" {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = do(t, srv, http.MethodGet, "/api/summary?category=Shopping", "", "")
	sum := decode[map[string]any](t, rr)
	for _, k := range []string{"total", "average", "median"} {
		if sum[k] != "1794.09" {
			t.Errorf("%s = %v", k, sum[k])
		}
	}
	if sum["count"] != float64(1) {
		t.Errorf("count = %v", sum["count"])
	}
}

func TestEmptyLedgerSummaryIsZero(t *testing.T) {
	srv, _ := newTestServer(t, memory.New())
	sum := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/summary", "", ""))
	if sum["total"] != "0" || sum["count"] != float64(0) {
		t.Fatalf("unexpected summary: %v", sum)
	}
}

func TestListSortAndInvertedRange(t *testing.T) {
	srv, _ := newTestServer(t, seeded())

	list := decode[listResponse](t, do(t, srv, http.MethodGet, "/api/transactions?sort=asc", "", ""))
	if list.Transactions[0].Date != "2024-04-26" {
		t.Fatalf("not sorted: %+v", list.Transactions)
	}

	rr := do(t, srv, http.MethodGet, "/api/transactions?start=2024-12-31&end=2024-01-01", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("inverted range should not be an error, got %d", rr.Code)
	}
	if list := decode[listResponse](t, rr); list.Count != 0 || list.Transactions == nil {
		t.Fatalf("expected empty list, got %+v", list)
	}

	if rr := do(t, srv, http.MethodGet, "/api/transactions?min=abc", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: status=%d", rr.Code)
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, svc := newTestServer(t, memory.New())

	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded",
		"date=2024-06-04&amount=12.5&category=+Food+&description=Lunch")
	if rr.Code != http.StatusCreated {
		t.Fatalf("form: status=%d body=%s", rr.Code, rr.Body.String())
	}
	tx := decode[transactionJSON](t, rr)
	if tx.Amount != "12.50" || tx.Category != "Food" {
		t.Fatalf("unexpected: %+v", tx)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-06-05","amount":"3","category":"Transport","description":"Bus"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("json: status=%d body=%s", rr.Code, rr.Body.String())
	}

	l, _ := svc.Snapshot()
	if l.Len() != 2 {
		t.Fatalf("ledger has %d rows", l.Len())
	}
}

func TestCreateTransactionNegativeAmount(t *testing.T) {
	store := seeded()
	srv, svc := newTestServer(t, store)
	before := store.Dump()

	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-06-05","amount":"-5","category":"Food"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if body.Field != "amount" || body.Error == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if l, _ := svc.Snapshot(); l.Len() != 2 {
		t.Fatalf("ledger changed: %d rows", l.Len())
	}
	if store.Dump() != before {
		t.Fatal("storage changed")
	}
}

func TestCreateTransactionRejectsExponentAmounts(t *testing.T) {
	store := seeded()
	srv, _ := newTestServer(t, store)
	before := store.Dump()

	for _, amount := range []string{"1e3", "1e10000000"} {
		rr := do(t, srv, http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded",
			"date=2024-06-05&category=Food&amount="+amount)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d", amount, rr.Code)
		}
		if rr := do(t, srv, http.MethodGet, "/api/transactions?max="+amount, "", ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s filter: status=%d", amount, rr.Code)
		}
	}
	if store.Dump() != before {
		t.Fatal("storage changed")
	}
}

func TestCreateTransactionStorageFailure(t *testing.T) {
	store := &failingStore{Store: seeded()}
	srv, svc := newTestServer(t, store)
	store.fail = true

	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-06-05","amount":"5","category":"Food"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "disk full") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}
	if l, _ := svc.Snapshot(); l.Len() != 2 {
		t.Fatalf("memory changed after failed save: %d rows", l.Len())
	}
}

func TestReset(t *testing.T) {
	store := seeded()
	srv, _ := newTestServer(t, store)

	if rr := do(t, srv, http.MethodPost, "/api/reset", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if store.Dump() != "Date,Amount,Category,Description\n" {
		t.Fatalf("store not reset: %q", store.Dump())
	}
	if list := decode[listResponse](t, do(t, srv, http.MethodGet, "/api/transactions", "", "")); list.Count != 0 {
		t.Fatalf("list after reset: %+v", list)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, memory.New())
	rr := do(t, srv, http.MethodDelete, "/api/transactions", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestBreakdownsHistogramCategories(t *testing.T) {
	srv, _ := newTestServer(t, seeded())

	byCat := decode[core.Breakdown](t, do(t, srv, http.MethodGet, "/api/breakdown/category", "", ""))
	if len(byCat.Groups) != 2 || byCat.Groups[0].Key != "Shopping" {
		t.Fatalf("by category: %+v", byCat)
	}
	byMonth := decode[core.Breakdown](t, do(t, srv, http.MethodGet, "/api/breakdown/month", "", ""))
	if len(byMonth.Groups) != 2 || byMonth.Groups[0].Key != "2024-04" {
		t.Fatalf("by month: %+v", byMonth)
	}

	hist := decode[histogramResponse](t, do(t, srv, http.MethodGet, "/api/histogram?bins=4", "", ""))
	if len(hist.Bins) != 4 {
		t.Fatalf("bins: %d", len(hist.Bins))
	}
	if rr := do(t, srv, http.MethodGet, "/api/histogram?bins=0", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bins=0: status=%d", rr.Code)
	}

	cats := decode[categoriesResponse](t, do(t, srv, http.MethodGet, "/api/categories", "", ""))
	if cats.Categories[0] != core.DefaultCategories[0] || cats.Categories[len(cats.Categories)-1] != "Education" {
		t.Fatalf("categories: %v", cats.Categories)
	}
}

func TestDashboardCachedPerVersion(t *testing.T) {
	srv, _ := newTestServer(t, seeded())

	if rr := do(t, srv, http.MethodGet, "/api/dashboard", "", ""); rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first request should miss")
	}
	rr := do(t, srv, http.MethodGet, "/api/dashboard", "", "")
	if rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second request should hit")
	}
	d := decode[core.Dashboard](t, rr)
	if d.Summary.Count != 2 || len(d.Categories) != 2 {
		t.Fatalf("dashboard: %+v", d.Summary)
	}

	do(t, srv, http.MethodPost, "/api/transactions", "application/json", `{"date":"2024-06-05","amount":"5","category":"Food"}`)
	rr = do(t, srv, http.MethodGet, "/api/dashboard", "", "")
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("append must make the old dashboard unreachable")
	}
	if d := decode[core.Dashboard](t, rr); d.Summary.Count != 3 {
		t.Fatalf("stale dashboard: %+v", d.Summary)
	}
}

func TestShutdownLogsDashboardCacheStats(t *testing.T) {
	svc := services.NewLedgerService(seeded(), nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	var out bytes.Buffer
	srv, err := NewServer(":0", svc, Options{Logger: log.New(log.Config{Output: &out})})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	do(t, srv, http.MethodGet, "/api/dashboard", "", "")
	do(t, srv, http.MethodGet, "/api/dashboard", "", "")
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	for _, want := range []string{"dashboard_cache_hits=1", "dashboard_cache_misses=1", "cached_dashboards=1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("shutdown log missing %q:\n%s", want, out.String())
		}
	}
}

func TestExports(t *testing.T) {
	srv, _ := newTestServer(t, seeded())

	rr := do(t, srv, http.MethodGet, "/export/transactions.csv", "", "")
	want := "Date,Amount,Category,Description\n2024-06-04,1794.09,Shopping,Shoes\n2024-04-26,1176.24,Education,Online course\n"
	if rr.Body.String() != want {
		t.Fatalf("transactions.csv:\n%s", rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "transactions.csv") {
		t.Fatalf("disposition: %q", rr.Header().Get("Content-Disposition"))
	}

	rr = do(t, srv, http.MethodGet, "/export/breakdown.csv?group=month", "", "")
	if rr.Body.String() != "Month,Total\n2024-04,1176.24\n2024-06,1794.09\n" {
		t.Fatalf("breakdown.csv:\n%s", rr.Body.String())
	}
	if rr := do(t, srv, http.MethodGet, "/export/breakdown.csv?group=week", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad group: status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/export/report.csv", "", "")
	if rr.Body.String() != "Category,Total,Average,Count\nShopping,1794.09,1794.09,1\nEducation,1176.24,1176.24,1\n" {
		t.Fatalf("report.csv:\n%s", rr.Body.String())
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	svc := services.NewLedgerService(memory.New(), nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	srv, err := NewServer(":0", svc, Options{RateLimitPerMinute: 1, Logger: log.New(log.Config{Output: &bytes.Buffer{}})})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Shutdown(context.Background())

	body := `{"date":"2024-06-05","amount":"5","category":"Food"}`
	if rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write: %d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: %d", rr.Code)
	}
	if decode[errorBody](t, rr).Error == "" {
		t.Fatal("expected JSON error body")
	}
	if rr := do(t, srv, http.MethodGet, "/api/summary", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited: %d", rr.Code)
	}
}
