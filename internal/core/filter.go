package core

import "time"

// FilterCriteria constrains a transaction view. Zero values mean
// "no constraint on this dimension".
type FilterCriteria struct {
	Month         int    `json:"month,omitempty"` // 1-12
	Category      string `json:"category,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`

	StartDate time.Time `json:"startDate,omitempty"` // inclusive
	EndDate   time.Time `json:"endDate,omitempty"`   // inclusive
	MinAmount *float64  `json:"minAmount,omitempty"`
	MaxAmount *float64  `json:"maxAmount,omitempty"`
}

// InYear narrows c to one calendar year through its date range. Month
// stays a plain calendar-month match, so summaries pair the two.
func (c FilterCriteria) InYear(year int) FilterCriteria {
	c.StartDate = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	c.EndDate = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return c
}

// IsEmpty reports whether no constraint is set.
func (c FilterCriteria) IsEmpty() bool {
	return c.Month == 0 &&
		c.Category == "" &&
		c.PaymentMethod == "" &&
		c.StartDate.IsZero() &&
		c.EndDate.IsZero() &&
		c.MinAmount == nil &&
		c.MaxAmount == nil
}

// Matches reports whether t satisfies every set constraint.
func (c FilterCriteria) Matches(t Transaction) bool {
	if c.Month != 0 {
		m, ok := t.Month()
		if !ok || m != c.Month {
			return false
		}
	}
	if c.Category != "" && t.Label() != c.Category {
		return false
	}
	if c.PaymentMethod != "" && t.PaymentMethod != c.PaymentMethod {
		return false
	}
	if !c.StartDate.IsZero() || !c.EndDate.IsZero() {
		d, ok := t.Time()
		if !ok {
			return false
		}
		day := truncateDay(d)
		if !c.StartDate.IsZero() && day.Before(truncateDay(c.StartDate)) {
			return false
		}
		if !c.EndDate.IsZero() && day.After(truncateDay(c.EndDate)) {
			return false
		}
	}
	if c.MinAmount != nil || c.MaxAmount != nil {
		if !t.Amount.Valid() {
			return false
		}
		if c.MinAmount != nil && t.Amount.Float() < *c.MinAmount {
			return false
		}
		if c.MaxAmount != nil && t.Amount.Float() > *c.MaxAmount {
			return false
		}
	}
	return true
}

// ApplyFilters returns the elements of all that match criteria, in order.
// An empty criteria returns all itself. The input is never modified.
func ApplyFilters(all []Transaction, criteria FilterCriteria) []Transaction {
	if criteria.IsEmpty() {
		return all
	}
	out := make([]Transaction, 0, len(all))
	for _, t := range all {
		if criteria.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
