package core

import (
	"fmt"
	"sort"
)

// Summary is the income/expense headline for one calendar month.
type Summary struct {
	Month         int     `json:"month"`
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	Balance       float64 `json:"balance"`
	// SavingsRate is Balance/TotalIncome in percent; 0 without income.
	SavingsRate float64 `json:"savingsRate"`
}

// BudgetStatus compares a budget with the matching expenses.
type BudgetStatus struct {
	Budget      Budget  `json:"budget"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
	Exceeded    bool    `json:"exceeded"`
}

// InsightType groups insights in the dashboard.
type InsightType string

const (
	InsightSpending InsightType = "spending"
	InsightSaving   InsightType = "saving"
	InsightBudget   InsightType = "budget"
	InsightWarning  InsightType = "warning"
)

// Insight is a short human-readable observation about the month.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

// budgetWarnPercent is the usage above which a budget is flagged before
// it is exceeded.
const budgetWarnPercent = 80.0

// Summarize derives the monthly headline. month 0 summarizes everything.
func Summarize(expenses, income []Transaction, month int) Summary {
	s := Summary{Month: month}
	if month == 0 {
		s.TotalExpenses = SumAmounts(expenses)
		s.TotalIncome = SumAmounts(income)
	} else {
		s.TotalExpenses = MonthlyTotal(expenses, month)
		s.TotalIncome = MonthlyTotal(income, month)
	}
	s.Balance = s.TotalIncome - s.TotalExpenses
	if s.TotalIncome > 0 {
		s.SavingsRate = s.Balance / s.TotalIncome * 100
	}
	return s
}

// EvaluateBudgets returns one status per budget, in budget order. Spent
// counts expenses of the budget category dated in the budget month and year.
func EvaluateBudgets(expenses []Transaction, budgets []Budget) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		var spent float64
		for _, t := range expenses {
			if !t.Amount.Valid() || t.Label() != b.Category {
				continue
			}
			d, ok := t.Time()
			if !ok || int(d.Month()) != b.Month || (b.Year != 0 && d.Year() != b.Year) {
				continue
			}
			spent += t.Amount.Float()
		}
		st := BudgetStatus{Budget: b, Spent: spent}
		if b.Amount.Valid() {
			st.Remaining = b.Amount.Float() - spent
			if b.Amount > 0 {
				st.PercentUsed = spent / b.Amount.Float() * 100
			}
			st.Exceeded = spent > b.Amount.Float()
		}
		out = append(out, st)
	}
	return out
}

// GenerateInsights turns the month's derived state into observations,
// most urgent first: exceeded budgets, overspending, then the rest.
func GenerateInsights(s Summary, byCategory CategoryTotals, budgets []BudgetStatus) []Insight {
	var urgent, rest []Insight

	exceeded := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		switch {
		case b.Exceeded:
			exceeded = append(exceeded, b)
		case b.PercentUsed >= budgetWarnPercent:
			rest = append(rest, Insight{
				Type:        InsightBudget,
				Title:       b.Budget.Category + " budget almost used",
				Description: fmt.Sprintf("%.0f%% of the %s budget is spent.", b.PercentUsed, b.Budget.Category),
			})
		}
	}
	sort.SliceStable(exceeded, func(i, j int) bool { return exceeded[i].PercentUsed > exceeded[j].PercentUsed })
	for _, b := range exceeded {
		urgent = append(urgent, Insight{
			Type:        InsightBudget,
			Title:       b.Budget.Category + " budget exceeded",
			Description: fmt.Sprintf("Spent %.2f of %.2f.", b.Spent, b.Budget.Amount.Float()),
		})
	}

	if s.TotalIncome > 0 && s.TotalExpenses > s.TotalIncome {
		urgent = append(urgent, Insight{
			Type:        InsightWarning,
			Title:       "Spending exceeds income",
			Description: fmt.Sprintf("Expenses are %.2f above income this period.", s.TotalExpenses-s.TotalIncome),
		})
	}

	if top, ok := byCategory.Max(); ok && s.TotalExpenses > 0 {
		rest = append(rest, Insight{
			Type:        InsightSpending,
			Title:       "Top spending category: " + top.Name,
			Description: fmt.Sprintf("%s accounts for %.0f%% of expenses.", top.Name, top.Amount/s.TotalExpenses*100),
		})
	}

	if s.TotalIncome > 0 && s.SavingsRate >= 20 {
		rest = append(rest, Insight{
			Type:        InsightSaving,
			Title:       "Healthy savings rate",
			Description: fmt.Sprintf("You saved %.0f%% of your income.", s.SavingsRate),
		})
	}
	return append(urgent, rest...)
}
