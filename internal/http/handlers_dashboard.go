package http

import (
	"net/http"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type backendTotals struct {
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
}

// summaryResponse is the derived dashboard state for one month.
type summaryResponse struct {
	Year            int                 `json:"year"`
	Month           int                 `json:"month"`
	Summary         core.Summary        `json:"summary"`
	ByCategory      core.CategoryTotals `json:"byCategory"`
	BySource        core.CategoryTotals `json:"bySource"`
	ByPaymentMethod core.CategoryTotals `json:"byPaymentMethod"`
	MonthlyExpenses [12]float64         `json:"monthlyExpenses"`
	MonthlyIncome   [12]float64         `json:"monthlyIncome"`
	Budgets         []core.BudgetStatus `json:"budgets"`
	Goals           []core.GoalProgress `json:"goals"`
	Insights        []core.Insight      `json:"insights"`
	// CurrentMonth holds the backend-computed totals for the current month.
	CurrentMonth backendTotals `json:"currentMonth"`
	Stale        bool          `json:"stale"`
}

// budgetsFor selects the budgets of a month (all months when 0) in year.
func budgetsFor(all []core.Budget, params MonthParams) []core.Budget {
	out := make([]core.Budget, 0, len(all))
	for _, b := range all {
		if params.Month != 0 && b.Month != params.Month {
			continue
		}
		if b.Year != 0 && b.Year != params.Year {
			continue
		}
		out = append(out, b)
	}
	return out
}

// summary derives and caches the month view of snap, counting only
// transactions dated in params.Year. Stale snapshots are derived but not
// cached.
func (s *Server) summary(snap core.Snapshot, params MonthParams) summaryResponse {
	key := strconv.Itoa(params.Year) + "-" + strconv.Itoa(params.Month)
	if !snap.Stale() {
		if resp, ok := s.summaryCache.Get(key); ok {
			return resp
		}
	}

	inYear := core.FilterCriteria{}.InYear(params.Year)
	yearExpenses := core.ApplyFilters(snap.Expenses.Transactions, inYear)
	yearIncome := core.ApplyFilters(snap.Income.Transactions, inYear)

	criteria := core.FilterCriteria{Month: params.Month}
	expenses := core.ApplyFilters(yearExpenses, criteria)
	income := core.ApplyFilters(yearIncome, criteria)

	resp := summaryResponse{
		Year:            params.Year,
		Month:           params.Month,
		Summary:         core.Summarize(expenses, income, params.Month),
		ByCategory:      core.AggregateByCategory(expenses, core.FieldCategory, core.ExpenseCategories),
		BySource:        core.AggregateByCategory(income, core.FieldSource, core.IncomeSources),
		ByPaymentMethod: core.AggregateByPaymentMethod(expenses, core.PaymentMethods),
		MonthlyExpenses: core.MonthlyBreakdown(yearExpenses),
		MonthlyIncome:   core.MonthlyBreakdown(yearIncome),
		Budgets:         core.EvaluateBudgets(yearExpenses, budgetsFor(snap.Budgets, params)),
		Goals:           core.EvaluateGoals(snap.Goals, s.now()),
		CurrentMonth: backendTotals{
			Expenses: snap.Expenses.MonthlyTotal,
			Income:   snap.Income.MonthlyTotal,
		},
		Stale: snap.Stale(),
	}
	resp.Insights = append(core.GenerateInsights(resp.Summary, resp.ByCategory, resp.Budgets), core.GoalInsights(resp.Goals)...)

	if !resp.Stale {
		s.summaryCache.Set(key, resp)
	}
	return resp
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
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

	writeJSON(w, http.StatusOK, s.summary(snap, params))
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
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

	yearExpenses := core.ApplyFilters(snap.Expenses.Transactions, core.FilterCriteria{}.InYear(params.Year))
	statuses := core.EvaluateBudgets(yearExpenses, budgetsFor(snap.Budgets, params))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":    params.Year,
		"month":   params.Month,
		"budgets": statuses,
		"stale":   snap.Stale(),
	})
}

func (s *Server) handleTaxonomy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories":     core.ExpenseCategories,
		"sources":        core.IncomeSources,
		"paymentMethods": core.PaymentMethods,
	})
}
