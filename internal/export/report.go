// Package export writes monthly summaries to external destinations.
package export

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// SummaryWriter is implemented by export destinations.
type SummaryWriter interface {
	WriteSummary(ctx context.Context, r Report) error
}

// Report is everything exported for one month.
type Report struct {
	Year            int
	Month           int
	Summary         core.Summary
	ByCategory      core.CategoryTotals
	BySource        core.CategoryTotals
	ByPaymentMethod core.CategoryTotals
	Budgets         []core.BudgetStatus
	Goals           []core.GoalProgress
	GeneratedAt     time.Time
}

// NewReport derives the report for year/month from a snapshot. Only
// transactions dated in year count; goal progress is taken as of now.
func NewReport(snap core.Snapshot, year, month int, now time.Time) Report {
	period := core.FilterCriteria{Month: month}.InYear(year)
	expenses := core.ApplyFilters(snap.Expenses.Transactions, period)
	income := core.ApplyFilters(snap.Income.Transactions, period)
	yearExpenses := core.ApplyFilters(snap.Expenses.Transactions, core.FilterCriteria{}.InYear(year))

	budgets := make([]core.Budget, 0, len(snap.Budgets))
	for _, b := range snap.Budgets {
		if b.Month == month && (b.Year == 0 || b.Year == year) {
			budgets = append(budgets, b)
		}
	}

	return Report{
		Year:            year,
		Month:           month,
		Summary:         core.Summarize(expenses, income, month),
		ByCategory:      core.AggregateByCategory(expenses, core.FieldCategory, core.ExpenseCategories),
		BySource:        core.AggregateByCategory(income, core.FieldSource, core.IncomeSources),
		ByPaymentMethod: core.AggregateByPaymentMethod(expenses, core.PaymentMethods),
		Budgets:         core.EvaluateBudgets(yearExpenses, budgets),
		Goals:           core.EvaluateGoals(snap.Goals, now),
		GeneratedAt:     now,
	}
}

// SheetName is the destination tab for a year: "<year> Summary", unless
// base already starts with a year.
func SheetName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Summary"
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// BuildRows lays a report out as spreadsheet rows: a title, totals, then one
// section per grouping. Amounts are numbers so the sheet can format them.
func BuildRows(r Report) [][]any {
	rows := [][]any{
		{fmt.Sprintf("%s %d", time.Month(r.Month).String(), r.Year), "Generated", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Total income", round2(r.Summary.TotalIncome)},
		{"Total expenses", round2(r.Summary.TotalExpenses)},
		{"Balance", round2(r.Summary.Balance)},
		{"Savings rate %", round2(r.Summary.SavingsRate)},
	}

	rows = appendSection(rows, "Category", r.ByCategory)
	rows = appendSection(rows, "Source", r.BySource)
	rows = appendSection(rows, "Payment method", r.ByPaymentMethod)

	if len(r.Budgets) > 0 {
		rows = append(rows, []any{}, []any{"Budget", "Limit", "Spent", "Remaining", "Status"})
		for _, b := range r.Budgets {
			status := "ok"
			if b.Exceeded {
				status = "exceeded"
			}
			rows = append(rows, []any{b.Budget.Category, round2(b.Budget.Amount.Float()), round2(b.Spent), round2(b.Remaining), status})
		}
	}

	if len(r.Goals) > 0 {
		rows = append(rows, []any{}, []any{"Goal", "Target", "Saved", "Remaining", "Status"})
		for _, g := range r.Goals {
			rows = append(rows, []any{g.Goal.Title, round2(g.Goal.TargetAmount.Float()), round2(g.Goal.CurrentAmount.Float()), round2(g.Remaining), string(g.Status)})
		}
	}
	return rows
}

func appendSection(rows [][]any, title string, t core.CategoryTotals) [][]any {
	rows = append(rows, []any{}, []any{title, "Amount"})
	for _, it := range t.Items {
		rows = append(rows, []any{it.Name, round2(it.Amount)})
	}
	if t.UnmatchedCount > 0 {
		rows = append(rows, []any{"Unrecognised", round2(t.Unmatched)})
	}
	return rows
}

func round2(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
