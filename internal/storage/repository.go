package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no snapshot has been stored for a key.
var ErrNotFound = errors.New("snapshot not found")

// Keys of the non-transaction parts of a snapshot.
const (
	budgetsKey = "budgets"
	goalsKey   = "saving_goals"
)

// SQLiteRepository keeps the last fetched copy of each collection so the
// dashboard can still render when the backend is unreachable.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := MigrateSnapshots(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save stores both collections, the budgets and the saving goals of snap in
// one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	for _, c := range []core.Collection{snap.Expenses, snap.Income} {
		if err := saveCollection(ctx, q, c); err != nil {
			return err
		}
	}
	if err := upsert(ctx, q, budgetsKey, snap.Expenses.FetchedAt, len(snap.Budgets), snap.Budgets); err != nil {
		return err
	}
	if err := upsert(ctx, q, goalsKey, snap.Expenses.FetchedAt, len(snap.Goals), snap.Goals); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"expenses", len(snap.Expenses.Transactions),
		"income", len(snap.Income.Transactions),
		"budgets", len(snap.Budgets),
		"goals", len(snap.Goals))
	return nil
}

// SaveCollection stores a single collection under its kind.
func (r *SQLiteRepository) SaveCollection(ctx context.Context, c core.Collection) error {
	return saveCollection(ctx, r.queries, c)
}

// Load returns the stored snapshot. Both collections must be present;
// budgets or goals missing from an older store are treated as empty.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, error) {
	exp, err := r.LoadCollection(ctx, core.Expense)
	if err != nil {
		return core.Snapshot{}, err
	}
	inc, err := r.LoadCollection(ctx, core.Income)
	if err != nil {
		return core.Snapshot{}, err
	}

	var budgets []core.Budget
	if _, err := r.load(ctx, budgetsKey, &budgets); err != nil && !errors.Is(err, ErrNotFound) {
		return core.Snapshot{}, err
	}

	var goals []core.SavingGoal
	if _, err := r.load(ctx, goalsKey, &goals); err != nil && !errors.Is(err, ErrNotFound) {
		return core.Snapshot{}, err
	}

	return core.Snapshot{Expenses: exp, Income: inc, Budgets: budgets, Goals: goals}, nil
}

// LoadCollection returns the stored collection of kind or ErrNotFound.
func (r *SQLiteRepository) LoadCollection(ctx context.Context, kind core.Kind) (core.Collection, error) {
	if !kind.IsValid() {
		return core.Collection{}, core.ErrInvalidKind
	}
	var c core.Collection
	if _, err := r.load(ctx, kind.String(), &c); err != nil {
		return core.Collection{}, err
	}
	c.Kind = kind
	return c, nil
}

// Kinds lists the stored keys.
func (r *SQLiteRepository) Kinds(ctx context.Context) ([]string, error) {
	kinds, err := r.queries.ListSnapshotKinds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshot kinds: %w", err)
	}
	return kinds, nil
}

func (r *SQLiteRepository) load(ctx context.Context, key string, v any) (SnapshotRow, error) {
	row, err := r.queries.GetSnapshot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return row, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return row, fmt.Errorf("get snapshot %s: %w", key, err)
	}
	if err := msgpack.Unmarshal(row.Payload, v); err != nil {
		return row, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return row, nil
}

func saveCollection(ctx context.Context, q *Queries, c core.Collection) error {
	if !c.Kind.IsValid() {
		return fmt.Errorf("save collection: %w", core.ErrInvalidKind)
	}
	return upsert(ctx, q, c.Kind.String(), c.FetchedAt, len(c.Transactions), c)
}

func upsert(ctx context.Context, q *Queries, key string, fetchedAt time.Time, count int, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	err = q.UpsertSnapshot(ctx, UpsertSnapshotParams{
		Kind:      key,
		FetchedAt: fetchedAt.UnixMilli(),
		ItemCount: int64(count),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", key, err)
	}
	return nil
}
