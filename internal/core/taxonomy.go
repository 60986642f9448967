package core

import "strings"

// CategoryField names the categorical dimension used for grouping.
type CategoryField string

const (
	FieldCategory      CategoryField = "category"
	FieldSource        CategoryField = "source"
	FieldPaymentMethod CategoryField = "paymentMethod"
)

// Canonical label sets. Order is the display order of chart legends.
var (
	ExpenseCategories = []string{
		"Food",
		"Transport",
		"Entertainment",
		"Shopping",
		"Bills",
		"Health",
		"Education",
		"Others",
	}

	IncomeSources = []string{
		"Salary",
		"Freelance",
		"Investments",
		"Business",
		"Gift",
		"Bonus",
		"From Person",
		"Other",
	}

	PaymentMethods = []string{
		"Cash",
		"Credit Card",
		"Debit Card",
		"UPI",
		"Net Banking",
		"Bank Transfer",
		"Check",
		"Other",
	}
)

// paymentMethodAliases maps folded spellings seen in older clients onto
// the canonical set.
var paymentMethodAliases = map[string]string{
	"card":     "Credit Card",
	"credit":   "Credit Card",
	"debit":    "Debit Card",
	"cheque":   "Check",
	"transfer": "Bank Transfer",
}

// KnownLabels returns the canonical labels and the grouping field for a kind.
func KnownLabels(k Kind) ([]string, CategoryField) {
	if k == Income {
		return IncomeSources, FieldSource
	}
	return ExpenseCategories, FieldCategory
}

// IsKnown reports whether v is one of labels (exact match).
func IsKnown(labels []string, v string) bool {
	for _, l := range labels {
		if l == v {
			return true
		}
	}
	return false
}

// NormalizePaymentMethod maps a payment method onto PaymentMethods.
// Unrecognised values are returned trimmed but otherwise unchanged so they
// stay visible instead of being folded into "Other".
func NormalizePaymentMethod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	folded := strings.ToLower(strings.Join(strings.Fields(s), ""))
	for _, pm := range PaymentMethods {
		if folded == strings.ToLower(strings.ReplaceAll(pm, " ", "")) {
			return pm
		}
	}
	if pm, ok := paymentMethodAliases[folded]; ok {
		return pm
	}
	return s
}
