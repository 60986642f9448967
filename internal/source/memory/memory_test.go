package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func fixedClock() time.Time {
	return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
}

func TestStoreFetchAndAdd(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Transaction{
		{Amount: 100, Date: "2024-01-05", Category: "Food", PaymentMethod: "card"},
		{Amount: 50, Date: "2024-02-10", Category: "Food", PaymentMethod: "Cash"},
	}, nil, nil).WithClock(fixedClock)

	col, err := s.FetchTransactions(ctx, core.Expense)
	require.NoError(t, err)
	require.Len(t, col.Transactions, 2)
	assert.Equal(t, "Credit Card", col.Transactions[0].PaymentMethod)
	assert.Equal(t, core.Expense, col.Transactions[0].Kind)
	assert.Equal(t, 100.0, col.MonthlyTotal)

	id, err := s.AddTransaction(ctx, core.Transaction{
		Kind: core.Income, Amount: 1000, Date: "2024-01-01", Source: "Salary", PaymentMethod: "Bank Transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, "mem:3", id)

	snap, err := s.FetchSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Income.Transactions, 1)
	assert.Equal(t, 1000.0, snap.Income.MonthlyTotal)
}

func TestStoreRejectsInvalid(t *testing.T) {
	s := New(nil, nil, nil)
	_, err := s.AddTransaction(context.Background(), core.Transaction{Kind: core.Expense, Amount: -1, Date: "2024-01-01", Category: "Food", PaymentMethod: "Cash"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = s.FetchTransactions(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New([]core.Transaction{{Amount: 1, Date: "2024-01-01", Category: "Food", PaymentMethod: "Cash"}}, nil, nil)
	col, err := s.FetchTransactions(ctx, core.Expense)
	require.NoError(t, err)
	col.Transactions[0].Category = "Bills"

	again, _ := s.FetchTransactions(ctx, core.Expense)
	assert.Equal(t, "Food", again.Transactions[0].Category)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	snap, _ := s.FetchSnapshot(context.Background())
	assert.Empty(t, snap.Expenses.Transactions)

	path := filepath.Join(dir, "seed.json")
	body := `{"expenses":[{"amount":"12.5","date":"2024-03-01","category":"Food","paymentMethod":"UPI"}],
	          "income":[{"amount":10,"date":"2024-03-02","source":"Gift","paymentMethod":"Cash"}],
	          "budgets":[{"category":"Food","amount":200,"month":3,"year":2024}],
	          "saving_goals":[{"id":5,"title":"Bike","target_amount":"900","current_amount":300,"target_date":"2024-09-01"}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	s, err = NewFromFile(path)
	require.NoError(t, err)
	snap, err = s.FetchSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Expenses.Transactions, 1)
	assert.Equal(t, 12.5, snap.Expenses.Transactions[0].Amount.Float())
	assert.Len(t, snap.Income.Transactions, 1)
	assert.Len(t, snap.Budgets, 1)
	require.Len(t, snap.Goals, 1)
	assert.Equal(t, "5", snap.Goals[0].ID)
	assert.Equal(t, core.Amount(900), snap.Goals[0].TargetAmount)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = NewFromFile(path)
	assert.Error(t, err)
}
