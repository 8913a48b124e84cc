package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowPerClient(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 2})
	defer l.Stop()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request within the window should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other clients have their own bucket")
	}

	fixed = fixed.Add(31 * time.Second)
	if !l.Allow("a") {
		t.Fatal("a token should be refilled after 31s at 2/min")
	}
}

func TestCleanupDropsIdleClients(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5, IdleTimeout: time.Minute})
	defer l.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * time.Minute)
	l.Allow("b")

	if removed := l.cleanup(); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if l.ActiveClients() != 1 {
		t.Fatalf("active = %d", l.ActiveClients())
	}
}

func TestMiddlewareOnlyLimitsWrites(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 1})
	defer l.Stop()

	h := l.Middleware(func(*http.Request) string { return "1.2.3.4" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/transactions", nil))
		return rec
	}

	if do("POST").Code != http.StatusNoContent {
		t.Fatal("first write should pass")
	}
	rec := do("POST")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	for i := 0; i < 5; i++ {
		if do("GET").Code != http.StatusNoContent {
			t.Fatal("reads are never limited")
		}
	}
}
