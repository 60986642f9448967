package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady reports ready when templates are loaded and a snapshot,
// fresh or stored, can be produced.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if snap, err := s.snapshot(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else if snap.Stale() {
		checks["backend"] = "stale"
	} else {
		checks["backend"] = "ok"
	}

	checks["cache"] = map[string]interface{}{
		"snapshot_entries": s.snapshotCache.Size(),
		"summary_entries":  s.summaryCache.Size(),
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	snapStats := s.snapshotCache.Stats()
	summaryStats := s.summaryCache.Stats()

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP transactions_created_total Transactions added through the dashboard\n")
	fmt.Fprintf(w, "# TYPE transactions_created_total counter\n")
	fmt.Fprintf(w, "transactions_created_total %d\n\n", atomic.LoadInt64(&s.appMetrics.transactions))

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n")
	fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{type=\"snapshot\"} %d\n", snapStats.Hits)
	fmt.Fprintf(w, "cache_hits_total{type=\"summary\"} %d\n\n", summaryStats.Hits)

	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n")
	fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{type=\"snapshot\"} %d\n", snapStats.Misses)
	fmt.Fprintf(w, "cache_misses_total{type=\"summary\"} %d\n\n", summaryStats.Misses)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests rejected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", s.securityDetector.SuspiciousRequests())

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

type indexData struct {
	Today          string
	Year           int
	Month          int
	Categories     []string
	Sources        []string
	PaymentMethods []string
	Summary        summaryResponse
	MaxCategory    float64
	Table          tableData
	Stale          bool
	Error          string
}

// logError reports a failed handler operation on the request logger.
func (s *Server) logError(ctx context.Context, msg string, err error, op string, fields log.LogFields) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, msg, err, op, fields)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := s.now()
	params, err := ParseMonthParams(r.URL.Query(), now)
	if err != nil {
		params = MonthParams{Year: now.Year(), Month: int(now.Month())}
	}

	data := indexData{
		Today:          now.Format("2006-01-02"),
		Year:           params.Year,
		Month:          params.Month,
		Categories:     core.ExpenseCategories,
		Sources:        core.IncomeSources,
		PaymentMethods: core.PaymentMethods,
	}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.logError(r.Context(), "Snapshot unavailable", err, log.OpFetch, nil)
		data.Error = "The finance backend is unreachable and no stored data is available."
	} else {
		data.Summary = s.summary(snap, params)
		if top, ok := data.Summary.ByCategory.Max(); ok {
			data.MaxCategory = top.Amount
		}
		txs := core.ApplyFilters(snap.Expenses.Transactions, core.FilterCriteria{Month: params.Month}.InYear(params.Year))
		data.Table = tableData{Kind: core.Expense, Transactions: txs, Total: core.SumAmounts(txs)}
		data.Stale = snap.Stale()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logError(r.Context(), "Index template execution failed", err, log.OpRender, log.LogFields{"template": "index.html"})
	}
}
