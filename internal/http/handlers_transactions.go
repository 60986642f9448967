package http

import (
	"errors"
	"html/template"
	"net/http"
	"sync/atomic"

	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// tableData feeds the transactions.html partial.
type tableData struct {
	Kind         core.Kind
	Transactions []core.Transaction
	Total        float64
	Stale        bool
}

type transactionsResponse struct {
	Kind         core.Kind          `json:"kind"`
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
	Total        float64            `json:"total"`
	MonthlyTotal float64            `json:"monthlyTotal"`
	Stale        bool               `json:"stale"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	kind, criteria, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		s.logError(r.Context(), "Snapshot unavailable", err, log.OpFetch, nil)
		writeJSONError(w, http.StatusBadGateway, "finance backend unavailable")
		return
	}

	col := snap.Collection(kind)
	txs := core.ApplyFilters(col.Transactions, criteria)
	if txs == nil {
		txs = []core.Transaction{}
	}

	writeJSON(w, http.StatusOK, transactionsResponse{
		Kind:         kind,
		Transactions: txs,
		Count:        len(txs),
		Total:        core.SumAmounts(txs),
		MonthlyTotal: col.MonthlyTotal,
		Stale:        col.Stale,
	})
}

// handleTransactionsPartial renders the filtered table for htmx swaps.
func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	kind, criteria, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		s.logError(ctx, "Snapshot unavailable", err, log.OpFetch, nil)
		BadGatewayError("Finance backend unavailable").Write(w)
		return
	}

	col := snap.Collection(kind)
	txs := core.ApplyFilters(col.Transactions, criteria)
	data := tableData{Kind: kind, Transactions: txs, Total: core.SumAmounts(txs), Stale: col.Stale}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "transactions.html", data); err != nil {
		s.logError(ctx, "Transactions template execution failed", err, log.OpRender, log.LogFields{"template": "transactions.html"})
	}
}

// handleCreate adds a transaction from a form or JSON body. HTMX callers
// get an HTML fragment and a transaction:created trigger; JSON callers get
// the new id.
func (s *Server) handleCreate(kind core.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.FromContext(ctx)

		p := NewRequestBodyParser(r)
		if err := p.Parse(); err != nil {
			s.fail(w, p, http.StatusBadRequest, "Invalid request format")
			return
		}

		tx, err := ParseTransaction(p, kind, s.now())
		if err != nil {
			s.fail(w, p, http.StatusUnprocessableEntity, "Invalid amount")
			return
		}

		ref, err := s.svc.Add(ctx, tx)
		if err != nil {
			var statusErr *api.StatusError
			switch {
			case core.IsValidationError(err):
				s.fail(w, p, http.StatusUnprocessableEntity, "Invalid data: "+err.Error())
			case errors.As(err, &statusErr) && statusErr.Unauthorized():
				logger.WarnContext(ctx, "Backend rejected credentials", log.FieldError, err)
				s.fail(w, p, http.StatusUnauthorized, "Session expired, update the API token")
			default:
				s.logError(ctx, "Transaction add failed", err, log.OpCreate, log.LogFields{log.FieldKind: kind.String()})
				s.fail(w, p, http.StatusBadGateway, "Could not save the transaction")
			}
			return
		}

		atomic.AddInt64(&s.appMetrics.transactions, 1)
		s.invalidate()

		tx = tx.Normalized()
		month, _ := tx.Month()

		if p.IsJSON() {
			writeJSON(w, http.StatusCreated, map[string]interface{}{
				"reference": ref,
				"kind":      kind,
				"month":     month,
			})
			return
		}

		label := "Expense"
		if kind == core.Income {
			label = "Income"
		}
		msg := label + " saved: " + s.formatAmount(tx.Amount.Float()) + " (" + tx.Label() + ")"

		NewHTMXResponse().
			TriggerTransactionCreated(kind.String(), month, ref).
			TriggerSuccessNotification(msg).
			TriggerFormReset().
			BodyHTML(`<div class="success">` + template.HTMLEscapeString(msg) + `</div>`).
			Write(w)
	})
}

func (s *Server) fail(w http.ResponseWriter, p *RequestBodyParser, status int, msg string) {
	if p != nil && p.IsJSON() {
		writeJSONError(w, status, msg)
		return
	}
	ErrorResponse(status, msg).Write(w)
}
