package core

// CategoryAmount is one labelled total.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// CategoryTotals holds one total per known label, in the order of the
// known labels. Values outside the known set do not get a key; their sum
// and count are kept in Unmatched and UnmatchedCount.
type CategoryTotals struct {
	Items          []CategoryAmount `json:"items"`
	Unmatched      float64          `json:"unmatched"`
	UnmatchedCount int              `json:"unmatchedCount"`
}

// Get returns the total for name and whether name is a key.
func (c CategoryTotals) Get(name string) (float64, bool) {
	for _, it := range c.Items {
		if it.Name == name {
			return it.Amount, true
		}
	}
	return 0, false
}

// Len is the number of keys.
func (c CategoryTotals) Len() int {
	return len(c.Items)
}

// Max returns the largest entry. ok is false when every total is zero.
func (c CategoryTotals) Max() (CategoryAmount, bool) {
	var best CategoryAmount
	found := false
	for _, it := range c.Items {
		if it.Amount > best.Amount {
			best = it
			found = true
		}
	}
	return best, found
}

// Total is the sum of all keyed totals.
func (c CategoryTotals) Total() float64 {
	var sum float64
	for _, it := range c.Items {
		sum += it.Amount
	}
	return sum
}

// SumAmounts adds up the well-formed amounts of txs.
func SumAmounts(txs []Transaction) float64 {
	var sum float64
	for _, t := range txs {
		if t.Amount.Valid() {
			sum += t.Amount.Float()
		}
	}
	return sum
}

// AggregateByCategory sums amounts per label of field, one key per known label.
func AggregateByCategory(txs []Transaction, field CategoryField, known []string) CategoryTotals {
	idx := make(map[string]int, len(known))
	out := CategoryTotals{Items: make([]CategoryAmount, 0, len(known))}
	for _, name := range known {
		if _, dup := idx[name]; dup {
			continue
		}
		idx[name] = len(out.Items)
		out.Items = append(out.Items, CategoryAmount{Name: name})
	}
	for _, t := range txs {
		if !t.Amount.Valid() {
			continue
		}
		i, ok := idx[t.Field(field)]
		if !ok {
			out.Unmatched += t.Amount.Float()
			out.UnmatchedCount++
			continue
		}
		out.Items[i].Amount += t.Amount.Float()
	}
	return out
}

// AggregateByPaymentMethod is AggregateByCategory over the payment method.
func AggregateByPaymentMethod(txs []Transaction, known []string) CategoryTotals {
	return AggregateByCategory(txs, FieldPaymentMethod, known)
}

// MonthlyTotal sums the amounts dated in the given calendar month.
func MonthlyTotal(txs []Transaction, month int) float64 {
	if month < 1 || month > 12 {
		return 0
	}
	return SumAmounts(ApplyFilters(txs, FilterCriteria{Month: month}))
}

// MonthlyBreakdown returns per-month sums; index 0 is January.
func MonthlyBreakdown(txs []Transaction) [12]float64 {
	var out [12]float64
	for _, t := range txs {
		if !t.Amount.Valid() {
			continue
		}
		if m, ok := t.Month(); ok {
			out[m-1] += t.Amount.Float()
		}
	}
	return out
}
