package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
)

// Refresher fetches a fresh snapshot and persists it.
type Refresher interface {
	Refresh(ctx context.Context) (core.Snapshot, error)
}

// RefreshWorker keeps the stored snapshot current and exports the monthly
// summary. exporter is optional.
type RefreshWorker struct {
	refresher Refresher
	exporter  export.SummaryWriter
	logger    *log.Logger
	now       func() time.Time
}

func NewRefreshWorker(refresher Refresher, exporter export.SummaryWriter, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RefreshWorker{
		refresher: refresher,
		exporter:  exporter,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// WithClock replaces time.Now, for tests.
func (w *RefreshWorker) WithClock(now func() time.Time) *RefreshWorker {
	w.now = now
	return w
}

// HandleRefresh processes a single refresh message from AMQP
func (w *RefreshWorker) HandleRefresh(ctx context.Context, msg *amqp.RefreshMessage) error {
	w.logger.InfoContext(ctx, "Processing refresh message",
		log.FieldMessageID, msg.ID,
		log.FieldKind, msg.Kind,
		"reason", msg.Reason)

	_, err := w.Refresh(ctx)
	return err
}

// Refresh fetches and persists a snapshot, evaluates the current month's
// budgets and exports the month report.
func (w *RefreshWorker) Refresh(ctx context.Context) (export.Report, error) {
	start := w.now()

	snap, err := w.refresher.Refresh(ctx)
	if err != nil {
		return export.Report{}, fmt.Errorf("refresh snapshot: %w", err)
	}

	report := export.NewReport(snap, start.Year(), int(start.Month()), start)

	for _, b := range report.Budgets {
		if b.Exceeded {
			w.logger.WarnContext(ctx, "Budget exceeded",
				log.FieldLabel, b.Budget.Category,
				"spent", b.Spent,
				"budget", b.Budget.Amount.Float(),
				"percent_used", b.PercentUsed)
		}
	}

	if w.exporter != nil {
		if err := w.exporter.WriteSummary(ctx, report); err != nil {
			return report, fmt.Errorf("export summary: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "Refresh completed",
		"expenses", len(snap.Expenses.Transactions),
		"income", len(snap.Income.Transactions),
		"budgets", len(report.Budgets),
		"exported", w.exporter != nil,
		log.FieldDuration, w.now().Sub(start).Milliseconds())

	return report, nil
}

// Run calls Refresh every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (w *RefreshWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}
