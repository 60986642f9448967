package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"fintrack/internal/core"
)

// Store is an in-process backend used for local development and tests.
type Store struct {
	mu       sync.Mutex
	expenses []core.Transaction
	income   []core.Transaction
	budgets  []core.Budget
	goals    []core.SavingGoal
	seq      int
	now      func() time.Time
}

// seed is the on-disk layout read by NewFromFile.
type seed struct {
	Expenses []core.Transaction `json:"expenses"`
	Income   []core.Transaction `json:"income"`
	Budgets  []core.Budget      `json:"budgets"`
	Goals    []core.SavingGoal  `json:"saving_goals"`
}

func New(expenses, income []core.Transaction, budgets []core.Budget) *Store {
	s := &Store{now: time.Now}
	for _, t := range expenses {
		t.Kind = core.Expense
		t.PaymentMethod = core.NormalizePaymentMethod(t.PaymentMethod)
		s.expenses = append(s.expenses, s.withID(t))
	}
	for _, t := range income {
		t.Kind = core.Income
		t.PaymentMethod = core.NormalizePaymentMethod(t.PaymentMethod)
		s.income = append(s.income, s.withID(t))
	}
	s.budgets = append(s.budgets, budgets...)
	return s
}

// NewFromFile seeds the store from a JSON file. A missing file yields an
// empty store; a malformed one is an error.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil, nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sd seed
	if err := json.Unmarshal(b, &sd); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	return New(sd.Expenses, sd.Income, sd.Budgets).WithGoals(sd.Goals), nil
}

// WithGoals replaces the stored saving goals.
func (s *Store) WithGoals(goals []core.SavingGoal) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = append([]core.SavingGoal(nil), goals...)
	return s
}

// WithClock replaces the clock used for the current-month total.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) FetchTransactions(_ context.Context, kind core.Kind) (core.Collection, error) {
	if !kind.IsValid() {
		return core.Collection{}, core.ErrInvalidKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.expenses
	if kind == core.Income {
		src = s.income
	}
	now := s.now()
	txs := append([]core.Transaction(nil), src...)
	return core.Collection{
		Kind:         kind,
		Transactions: txs,
		MonthlyTotal: core.MonthlyTotal(txs, int(now.Month())),
		FetchedAt:    now,
	}, nil
}

func (s *Store) FetchBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) FetchSavingGoals(_ context.Context) ([]core.SavingGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SavingGoal(nil), s.goals...), nil
}

func (s *Store) FetchSnapshot(ctx context.Context) (core.Snapshot, error) {
	exp, err := s.FetchTransactions(ctx, core.Expense)
	if err != nil {
		return core.Snapshot{}, err
	}
	inc, err := s.FetchTransactions(ctx, core.Income)
	if err != nil {
		return core.Snapshot{}, err
	}
	budgets, err := s.FetchBudgets(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	goals, err := s.FetchSavingGoals(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Expenses: exp, Income: inc, Budgets: budgets, Goals: goals}, nil
}

// AddTransaction stores the transaction and returns a synthetic id.
func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) (string, error) {
	tx.PaymentMethod = core.NormalizePaymentMethod(tx.PaymentMethod)
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = ""
	tx = s.withID(tx)
	if tx.Kind == core.Income {
		s.income = append(s.income, tx)
	} else {
		s.expenses = append(s.expenses, tx)
	}
	return tx.ID, nil
}

func (s *Store) withID(t core.Transaction) core.Transaction {
	s.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("mem:%d", s.seq)
	}
	return t
}
