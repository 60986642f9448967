package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// SavingGoal is a target amount the user is saving towards by a date.
type SavingGoal struct {
	ID            string `json:"id,omitempty" msgpack:"id"`
	Title         string `json:"title" msgpack:"title"`
	TargetAmount  Amount `json:"target_amount" msgpack:"target_amount"`
	CurrentAmount Amount `json:"current_amount" msgpack:"current_amount"`
	StartDate     string `json:"start_date,omitempty" msgpack:"start_date"`
	TargetDate    string `json:"target_date" msgpack:"target_date"`
	Completed     bool   `json:"completed" msgpack:"completed"`
}

// GoalStatus buckets a goal by progress against its deadline.
type GoalStatus string

const (
	GoalCompleted GoalStatus = "completed"
	GoalOnTrack   GoalStatus = "on_track"
	GoalBehind    GoalStatus = "behind"
	GoalAtRisk    GoalStatus = "at_risk"
	GoalOverdue   GoalStatus = "overdue"
)

// GoalProgress is the derived state of one goal at a point in time.
type GoalProgress struct {
	Goal            SavingGoal `json:"goal"`
	PercentComplete float64    `json:"percentComplete"`
	Remaining       float64    `json:"remaining"`
	// DaysLeft counts whole days until TargetDate; negative once it has
	// passed. Meaningless when HasDeadline is false.
	DaysLeft    int        `json:"daysLeft"`
	HasDeadline bool       `json:"hasDeadline"`
	Completed   bool       `json:"completed"`
	Status      GoalStatus `json:"status"`
}

// Thresholds below which an unfinished goal is flagged.
const (
	goalAtRiskDays    = 7
	goalAtRiskPercent = 90.0
	goalBehindDays    = 14
	goalBehindPercent = 75.0
)

// UnmarshalJSON tolerates numeric ids, string amounts and a missing or
// textual completed flag.
func (g *SavingGoal) UnmarshalJSON(b []byte) error {
	var w struct {
		ID            looseString `json:"id"`
		Title         looseString `json:"title"`
		TargetAmount  Amount      `json:"target_amount"`
		CurrentAmount Amount      `json:"current_amount"`
		StartDate     looseString `json:"start_date"`
		TargetDate    looseString `json:"target_date"`
		Completed     looseString `json:"completed"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = SavingGoal{
		ID:            string(w.ID),
		Title:         string(w.Title),
		TargetAmount:  w.TargetAmount,
		CurrentAmount: w.CurrentAmount,
		StartDate:     string(w.StartDate),
		TargetDate:    string(w.TargetDate),
		Completed:     strings.EqualFold(strings.TrimSpace(string(w.Completed)), "true"),
	}
	// A missing current_amount means nothing saved yet.
	if !g.CurrentAmount.Valid() {
		g.CurrentAmount = 0
	}
	return nil
}

// Deadline parses TargetDate as a plain date or an RFC 3339 timestamp.
func (g SavingGoal) Deadline() (time.Time, bool) {
	return Transaction{Date: g.TargetDate}.Time()
}

// EvaluateGoal derives the progress of g as of now. A goal is complete when
// the backend says so or the saved amount reaches the target.
func EvaluateGoal(g SavingGoal, now time.Time) GoalProgress {
	p := GoalProgress{Goal: g}

	target, current := g.TargetAmount.Float(), g.CurrentAmount.Float()
	if g.TargetAmount.Valid() && target > 0 {
		p.PercentComplete = current / target * 100
		p.Remaining = math.Max(target-current, 0)
	}
	p.Completed = g.Completed || (g.TargetAmount.Valid() && target > 0 && current >= target)
	if p.Completed {
		p.Remaining = 0
	}

	if d, ok := g.Deadline(); ok {
		p.HasDeadline = true
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		due := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		p.DaysLeft = int(due.Sub(today).Hours() / 24)
	}

	switch {
	case p.Completed:
		p.Status = GoalCompleted
	case p.HasDeadline && p.DaysLeft < 0:
		p.Status = GoalOverdue
	case p.HasDeadline && p.DaysLeft < goalAtRiskDays && p.PercentComplete < goalAtRiskPercent:
		p.Status = GoalAtRisk
	case p.HasDeadline && p.DaysLeft < goalBehindDays && p.PercentComplete < goalBehindPercent:
		p.Status = GoalBehind
	default:
		p.Status = GoalOnTrack
	}
	return p
}

// EvaluateGoals returns one progress entry per goal, in goal order.
func EvaluateGoals(goals []SavingGoal, now time.Time) []GoalProgress {
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, EvaluateGoal(g, now))
	}
	return out
}

// GoalInsights reports goals that need attention, then goals just reached.
func GoalInsights(goals []GoalProgress) []Insight {
	var urgent, rest []Insight
	for _, p := range goals {
		switch p.Status {
		case GoalOverdue:
			urgent = append(urgent, Insight{
				Type:        InsightWarning,
				Title:       p.Goal.Title + " goal is overdue",
				Description: fmt.Sprintf("%.2f still to save; the target date was %s.", p.Remaining, p.Goal.TargetDate),
			})
		case GoalAtRisk, GoalBehind:
			urgent = append(urgent, Insight{
				Type:        InsightSaving,
				Title:       p.Goal.Title + " goal is behind",
				Description: fmt.Sprintf("%.0f%% saved with %d days left.", p.PercentComplete, p.DaysLeft),
			})
		case GoalCompleted:
			rest = append(rest, Insight{
				Type:        InsightSaving,
				Title:       p.Goal.Title + " goal reached",
				Description: fmt.Sprintf("Saved %.2f of %.2f.", p.Goal.CurrentAmount.Float(), p.Goal.TargetAmount.Float()),
			})
		}
	}
	return append(urgent, rest...)
}
