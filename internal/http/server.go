package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendlog/internal/aggregate"
	"spendlog/internal/cache"
	"spendlog/internal/core"
	"spendlog/internal/ledger"
	"spendlog/internal/log"
	"spendlog/internal/middleware/ratelimit"
	"spendlog/internal/middleware/security"
	"spendlog/internal/middleware/trace"
)

// LedgerService is the session ledger as seen by the handlers. Reads work
// on immutable snapshots; mutations go through the service.
type LedgerService interface {
	Snapshot() (ledger.Ledger, int64)
	Append(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Reset(ctx context.Context) error
}

type Options struct {
	HistogramBins      int
	CacheSize          int
	CacheTTL           time.Duration
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set forwarding headers, in
	// addition to loopback and private ranges.
	TrustedProxies []string
	Logger         *log.Logger
}

func (o *Options) defaults() {
	if o.HistogramBins <= 0 {
		o.HistogramBins = aggregate.DefaultHistogramBins
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Minute
	}
	if o.RateLimitPerMinute <= 0 {
		o.RateLimitPerMinute = 60
	}
	if o.Logger == nil {
		o.Logger = log.New(log.DefaultConfig())
	}
}

type Server struct {
	http.Server
	ledger LedgerService
	logger *log.Logger
	logs   *log.StructuredLogger
	bins   int

	// Dashboards are keyed by ledger version, so mutations never need an
	// explicit invalidation.
	dashboards *cache.LRUCache[core.Dashboard]
	caches     *cache.Manager
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc LedgerService, opts Options) (*Server, error) {
	opts.defaults()

	resolver, err := security.NewClientIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		ledger:     svc,
		logger:     logger,
		logs:       log.NewStructuredLogger(opts.Logger),
		bins:       opts.HistogramBins,
		dashboards: cache.NewLRUCache[core.Dashboard](opts.CacheSize, opts.CacheTTL),
		caches:     cache.NewManager(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:     trace.NewMiddleware(opts.Logger, resolver.ExtractClientIP),
	}
	s.caches.Register(s.dashboards)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/breakdown/category", s.handleBreakdown(core.GroupByCategory))
	mux.HandleFunc("GET /api/breakdown/month", s.handleBreakdown(core.GroupByMonth))
	mux.HandleFunc("GET /api/histogram", s.handleHistogram)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	mux.HandleFunc("GET /export/transactions.csv", s.handleExportTransactions)
	mux.HandleFunc("GET /export/breakdown.csv", s.handleExportBreakdown)
	mux.HandleFunc("GET /export/report.csv", s.handleExportReport)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(resolver.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, resolver.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})

	var h http.Handler = mux
	h = security.NoStore(h)
	h = limit(h)
	h = headers.Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(opts.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()

		m := s.tracer.GetMetrics()
		hits, misses := s.dashboards.Stats()
		s.logger.InfoContext(ctx, "HTTP server stopping",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"cached_dashboards", s.dashboards.Size(),
			"dashboard_cache_hits", hits,
			"dashboard_cache_misses", misses)

		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyString("ok").Write(w)
}

// handleReady reports ready once the ledger has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, version := s.ledger.Snapshot(); version == 0 {
		NewResponse().Status(http.StatusServiceUnavailable).BodyString("ledger not loaded").Write(w)
		return
	}
	NewResponse().BodyString("ready").Write(w)
}
