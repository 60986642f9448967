package source

import (
	"context"

	"fintrack/internal/core"
)

// Ports for the transaction backend.
type (
	// TransactionReader returns the collection of one kind as served by
	// the backend, including the backend-computed monthly total.
	TransactionReader interface {
		FetchTransactions(ctx context.Context, kind core.Kind) (core.Collection, error)
	}

	TransactionWriter interface {
		AddTransaction(ctx context.Context, tx core.Transaction) (ref string, err error)
	}

	BudgetReader interface {
		FetchBudgets(ctx context.Context) ([]core.Budget, error)
	}

	GoalReader interface {
		FetchSavingGoals(ctx context.Context) ([]core.SavingGoal, error)
	}

	// SnapshotReader fetches everything the dashboard needs in one call.
	SnapshotReader interface {
		FetchSnapshot(ctx context.Context) (core.Snapshot, error)
	}

	// Source is implemented by every backend adapter.
	Source interface {
		TransactionReader
		TransactionWriter
		BudgetReader
		GoalReader
		SnapshotReader
	}
)
