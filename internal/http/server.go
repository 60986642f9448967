package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	appweb "fintrack/web"
)

// TransactionService is what the dashboard needs from the service layer.
type TransactionService interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
	Add(ctx context.Context, tx core.Transaction) (string, error)
}

// Options tunes the dashboard. Zero values fall back to defaults.
type Options struct {
	Logger         *log.Logger
	Locale         string
	CurrencySymbol string
	CacheTTL       time.Duration
	CacheSize      int
	// PostLimit is the number of POST requests allowed per client per minute.
	PostLimit int
	Now       func() time.Time
}

type appMetrics struct {
	uptime       time.Time
	transactions int64
}

type Server struct {
	http.Server
	templates *template.Template
	svc       TransactionService
	logger    *log.Logger

	locale string
	symbol string
	now    func() time.Time

	// Snapshots and derived summaries, purged on every add
	snapshotCache *cache.LRUCache[core.Snapshot]
	summaryCache  *cache.LRUCache[summaryResponse]
	cacheManager  *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

const snapshotKey = "snapshot"

func NewServer(addr string, svc TransactionService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Locale == "" {
		opts.Locale = "en-US"
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "$"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server:        http.Server{Addr: addr},
		svc:           svc,
		logger:        logger,
		locale:        opts.Locale,
		symbol:        opts.CurrencySymbol,
		now:           opts.Now,
		snapshotCache: cache.NewLRUCache[core.Snapshot](1, opts.CacheTTL),
		summaryCache:  cache.NewLRUCache[summaryResponse](opts.CacheSize, opts.CacheTTL),
		cacheManager:  cache.NewManager(opts.Logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: opts.PostLimit,
			Window:            time.Minute,
		}, opts.Logger),
		securityDetector: security.NewDetector(opts.Logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, s.securityDetector.ClientIP)

	s.cacheManager.Register(s.snapshotCache)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	limitPost := s.rateLimiter.Middleware(s.securityDetector.ClientIP, nil)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/budgets", s.handleBudgets)
	mux.HandleFunc("GET /api/taxonomy", s.handleTaxonomy)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactionsPartial)

	mux.Handle("POST /expenses", limitPost(s.handleCreate(core.Expense)))
	mux.Handle("POST /incomes", limitPost(s.handleCreate(core.Income)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Handler = s.traceMiddleware.Middleware(
		s.securityDetector.Middleware(
			headers.Middleware(mux)))

	return s
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// snapshot returns the cached snapshot or fetches one. Stale snapshots are
// never cached so the next request retries the backend.
func (s *Server) snapshot(ctx context.Context) (core.Snapshot, error) {
	if snap, ok := s.snapshotCache.Get(snapshotKey); ok {
		return snap, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	snap, err := s.svc.Snapshot(cctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	if !snap.Stale() {
		s.snapshotCache.Set(snapshotKey, snap)
	}
	return snap, nil
}

func (s *Server) invalidate() {
	s.snapshotCache.Purge()
	s.summaryCache.Purge()
}
