package core

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// dateLayout is the wire format of transaction dates.
const dateLayout = "2006-01-02"

// DefaultIncomePaymentMethod is recorded for income submitted without one.
const DefaultIncomePaymentMethod = "Bank Transfer"

type (
	Kind string

	// Amount is a decimal quantity decoded from an untrusted payload.
	// Values that cannot be read as a number decode to NaN.
	Amount float64

	// Transaction is a single recorded expense or income event.
	Transaction struct {
		ID            string `json:"id,omitempty" msgpack:"id"`
		Kind          Kind   `json:"kind,omitempty" msgpack:"kind"`
		Amount        Amount `json:"amount" msgpack:"amount"`
		Date          string `json:"date" msgpack:"date"`
		Category      string `json:"category,omitempty" msgpack:"category"` // expenses
		Source        string `json:"source,omitempty" msgpack:"source"`     // income
		PaymentMethod string `json:"paymentMethod" msgpack:"payment_method"`
		Notes         string `json:"notes,omitempty" msgpack:"notes"`
		OtherSource   string `json:"otherSource,omitempty" msgpack:"other_source"`
	}

	// Budget caps the spending of one expense category in a given month.
	Budget struct {
		ID       string `json:"id,omitempty" msgpack:"id"`
		Category string `json:"category" msgpack:"category"`
		Amount   Amount `json:"amount" msgpack:"amount"`
		Month    int    `json:"month" msgpack:"month"` // 1-12
		Year     int    `json:"year" msgpack:"year"`
	}

	// Collection is one fetched, immutable list of transactions together
	// with the backend-computed monthly total.
	Collection struct {
		Kind         Kind          `msgpack:"kind"`
		Transactions []Transaction `msgpack:"transactions"`
		MonthlyTotal float64       `msgpack:"monthly_total"`
		FetchedAt    time.Time     `msgpack:"fetched_at"`
		// Stale is set when the collection comes from the local store
		// because the backend could not be reached.
		Stale bool `msgpack:"-"`
	}

	// Snapshot groups everything the dashboard derives its state from.
	Snapshot struct {
		Expenses Collection
		Income   Collection
		Budgets  []Budget
		Goals    []SavingGoal
	}
)

var (
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDate          = errors.New("invalid date")
	ErrEmptyCategory        = errors.New("empty category")
	ErrEmptySource          = errors.New("empty source")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrNotesTooLong         = errors.New("notes too long (max 255 characters)")
)

// IsValidationError reports whether err comes from Transaction.Validate
// or ParseAmount.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidKind, ErrInvalidAmount, ErrInvalidDate,
		ErrEmptyCategory, ErrEmptySource, ErrInvalidPaymentMethod, ErrNotesTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (k Kind) IsValid() bool {
	return k == Expense || k == Income
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts singular and plural spellings ("expenses", "incomes").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses":
		return Expense, nil
	case "income", "incomes":
		return Income, nil
	default:
		return "", ErrInvalidKind
	}
}

// UnmarshalJSON accepts numbers and numeric strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*a = Amount(math.NaN())
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*a = Amount(math.NaN())
		return nil
	}
	*a = Amount(f)
	return nil
}

// MarshalJSON writes malformed amounts as null so the encoder never fails.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(a))
}

// looseString decodes any JSON scalar into its literal text, so a numeric
// id or date does not fail the enclosing record. Objects, arrays and null
// decode to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "" || raw == "null" || raw[0] == '{' || raw[0] == '[':
		*s = ""
	case raw[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	default:
		*s = looseString(raw)
	}
	return nil
}

// looseInt decodes numbers and numeric strings; anything else is 0.
type looseInt int

func (n *looseInt) UnmarshalJSON(b []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || f != math.Trunc(f) {
		*n = 0
		return nil
	}
	*n = looseInt(f)
	return nil
}

// UnmarshalJSON reads a backend record field by field. Wrongly typed
// scalars are kept as text: a numeric date stays unparseable and the record
// drops out of date-based views instead of failing the whole list.
func (t *Transaction) UnmarshalJSON(b []byte) error {
	var w struct {
		ID            looseString `json:"id"`
		Kind          looseString `json:"kind"`
		Amount        Amount      `json:"amount"`
		Date          looseString `json:"date"`
		Category      looseString `json:"category"`
		Source        looseString `json:"source"`
		PaymentMethod looseString `json:"paymentMethod"`
		Notes         looseString `json:"notes"`
		OtherSource   looseString `json:"otherSource"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = Transaction{
		ID:            string(w.ID),
		Kind:          Kind(w.Kind),
		Amount:        w.Amount,
		Date:          string(w.Date),
		Category:      string(w.Category),
		Source:        string(w.Source),
		PaymentMethod: string(w.PaymentMethod),
		Notes:         string(w.Notes),
		OtherSource:   string(w.OtherSource),
	}
	return nil
}

// UnmarshalJSON accepts integer ids and string months the same way.
func (bg *Budget) UnmarshalJSON(b []byte) error {
	var w struct {
		ID       looseString `json:"id"`
		Category looseString `json:"category"`
		Amount   Amount      `json:"amount"`
		Month    looseInt    `json:"month"`
		Year     looseInt    `json:"year"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*bg = Budget{
		ID:       string(w.ID),
		Category: string(w.Category),
		Amount:   w.Amount,
		Month:    int(w.Month),
		Year:     int(w.Year),
	}
	return nil
}

// Valid reports whether the amount is a finite number.
func (a Amount) Valid() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (a Amount) Float() float64 {
	return float64(a)
}

// Label returns the category for expenses and the source for income.
func (t Transaction) Label() string {
	if t.Kind == Income || (t.Category == "" && t.Source != "") {
		return t.Source
	}
	return t.Category
}

// Field returns the value of the named categorical field.
func (t Transaction) Field(f CategoryField) string {
	switch f {
	case FieldSource:
		return t.Source
	case FieldPaymentMethod:
		return t.PaymentMethod
	default:
		return t.Category
	}
}

// Time parses Date. Both plain dates and RFC 3339 timestamps are accepted.
func (t Transaction) Time() (time.Time, bool) {
	s := strings.TrimSpace(t.Date)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, s); err == nil {
		return d, true
	}
	return time.Time{}, false
}

// Month returns the 1-based calendar month of Date.
func (t Transaction) Month() (int, bool) {
	d, ok := t.Time()
	if !ok {
		return 0, false
	}
	return int(d.Month()), true
}

// Normalized returns t with trimmed text fields, a canonical payment method
// and the income payment method default applied.
func (t Transaction) Normalized() Transaction {
	t.Date = strings.TrimSpace(t.Date)
	t.Category = strings.TrimSpace(t.Category)
	t.Source = strings.TrimSpace(t.Source)
	t.Notes = strings.TrimSpace(t.Notes)
	t.OtherSource = strings.TrimSpace(t.OtherSource)
	t.PaymentMethod = NormalizePaymentMethod(t.PaymentMethod)
	if t.Kind == Income && t.PaymentMethod == "" {
		t.PaymentMethod = DefaultIncomePaymentMethod
	}
	return t
}

// Validate checks a transaction before it is submitted to the backend.
// Fetched transactions are never validated; aggregation tolerates them.
func (t Transaction) Validate() error {
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !t.Amount.Valid() || t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, ok := t.Time(); !ok {
		return ErrInvalidDate
	}
	switch t.Kind {
	case Expense:
		if strings.TrimSpace(t.Category) == "" {
			return ErrEmptyCategory
		}
	case Income:
		if strings.TrimSpace(t.Source) == "" {
			return ErrEmptySource
		}
	}
	if !IsKnown(PaymentMethods, t.PaymentMethod) {
		return ErrInvalidPaymentMethod
	}
	if len(t.Notes) > 255 {
		return ErrNotesTooLong
	}
	return nil
}

// Collection returns the collection of the given kind.
func (s Snapshot) Collection(k Kind) Collection {
	if k == Income {
		return s.Income
	}
	return s.Expenses
}

// Stale reports whether any part of the snapshot was served from the local store.
func (s Snapshot) Stale() bool {
	return s.Expenses.Stale || s.Income.Stale
}
