package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/source"
)

// SnapshotStore persists the last good snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap core.Snapshot) error
	Load(ctx context.Context) (core.Snapshot, error)
	Close() error
}

// RefreshPublisher notifies the worker that the backend changed.
type RefreshPublisher interface {
	PublishRefresh(ctx context.Context, kind, reason string) error
	Close() error
}

// TransactionService orchestrates reads and writes across the backend,
// the local snapshot store and AMQP. store and publisher are optional.
type TransactionService struct {
	source    source.Source
	store     SnapshotStore
	publisher RefreshPublisher
	logger    *log.Logger
}

func NewTransactionService(src source.Source, store SnapshotStore, publisher RefreshPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		source:    src,
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransactions),
	}
}

// Refresh fetches a fresh snapshot and persists it. It never falls back to
// the stored copy.
func (s *TransactionService) Refresh(ctx context.Context) (core.Snapshot, error) {
	snap, err := s.source.FetchSnapshot(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	s.reportUnmatched(ctx, snap)

	if s.store != nil {
		if err := s.store.Save(ctx, snap); err != nil {
			// The fresh data is still served
			s.logger.ErrorContext(ctx, "Failed to persist snapshot", log.FieldError, err)
		}
	}
	return snap, nil
}

// Snapshot returns a fresh snapshot, or the stored one flagged Stale when
// the backend cannot be reached.
func (s *TransactionService) Snapshot(ctx context.Context) (core.Snapshot, error) {
	snap, err := s.Refresh(ctx)
	if err == nil {
		return snap, nil
	}
	if s.store == nil || ctx.Err() != nil {
		return core.Snapshot{}, err
	}

	stored, lerr := s.store.Load(ctx)
	if lerr != nil {
		s.logger.WarnContext(ctx, "No stored snapshot to fall back to", log.FieldError, lerr)
		return core.Snapshot{}, err
	}
	stored.Expenses.Stale = true
	stored.Income.Stale = true

	s.logger.WarnContext(ctx, "Serving stored snapshot",
		log.FieldError, err,
		log.FieldStale, true,
		"fetched_at", stored.Expenses.FetchedAt)
	return stored, nil
}

// Add validates tx, writes it through the backend and asks the worker to
// refresh. The returned reference is whatever the source uses to identify
// the write. A failed publish is logged, not returned.
func (s *TransactionService) Add(ctx context.Context, tx core.Transaction) (string, error) {
	tx = tx.Normalized()
	if err := tx.Validate(); err != nil {
		return "", err
	}

	ref, err := s.source.AddTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", tx.Kind, err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx, tx.Kind.String(), tx.Amount.Float(), tx.Label(), tx.PaymentMethod, ref)

	if s.publisher != nil {
		if err := s.publisher.PublishRefresh(ctx, tx.Kind.String(), "transaction added"); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish refresh message",
				log.FieldReference, ref,
				log.FieldError, err)
		}
	}
	return ref, nil
}

// reportUnmatched logs transactions whose label is outside the canonical
// set; they are left out of per-category totals.
func (s *TransactionService) reportUnmatched(ctx context.Context, snap core.Snapshot) {
	for _, k := range []core.Kind{core.Expense, core.Income} {
		labels, field := core.KnownLabels(k)
		totals := core.AggregateByCategory(snap.Collection(k).Transactions, field, labels)
		if totals.UnmatchedCount > 0 {
			s.logger.WarnContext(ctx, "Transactions with unrecognised labels excluded from totals",
				log.FieldKind, k,
				log.FieldCount, totals.UnmatchedCount,
				log.FieldAmount, totals.Unmatched)
		}
	}
}

// Close closes both the store and the AMQP connection
func (s *TransactionService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}

var _ RefreshPublisher = (*amqp.Client)(nil)
