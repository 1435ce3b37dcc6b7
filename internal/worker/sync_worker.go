package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"spendtrack/internal/amqp"
	"spendtrack/internal/sheets"
)

// Consumer delivers expense events until ctx is done.
type Consumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker mirrors expense events into a spreadsheet.
type SyncWorker struct {
	mirror sheets.Mirror

	synced  atomic.Int64
	removed atomic.Int64
	failed  atomic.Int64
}

type SyncStats struct {
	Synced  int64
	Removed int64
	Failed  int64
}

func NewSyncWorker(mirror sheets.Mirror) *SyncWorker {
	return &SyncWorker{mirror: mirror}
}

// Run consumes events from c until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, c Consumer) error {
	slog.InfoContext(ctx, "Sync worker started")
	err := c.ConsumeExpenseEvents(ctx, w.HandleEvent)
	slog.InfoContext(ctx, "Sync worker stopped", "synced", w.synced.Load(), "removed", w.removed.Load(), "failed", w.failed.Load())
	return err
}

// HandleEvent applies a single event to the mirror. A returned error makes
// the consumer requeue the message; mirror writes are idempotent by ID so
// redelivery is harmless.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"event", ev.Type,
		"expense_id", ev.Expense.ID,
		"owner_id", ev.OwnerID)

	var err error
	switch ev.Type {
	case amqp.EventExpenseCreated, amqp.EventExpenseUpdated:
		err = w.mirror.Upsert(ctx, ev.Expense)
		if err == nil {
			w.synced.Add(1)
		}
	case amqp.EventExpenseDeleted:
		err = w.mirror.Remove(ctx, ev.Expense)
		if err == nil {
			w.removed.Add(1)
		}
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "event", ev.Type)
		return nil
	}

	if err != nil {
		w.failed.Add(1)
		slog.ErrorContext(ctx, "Failed to mirror expense",
			"event", ev.Type,
			"expense_id", ev.Expense.ID,
			"error", err)
		return fmt.Errorf("mirror %s: %w", ev.Type, err)
	}
	return nil
}

func (w *SyncWorker) Stats() SyncStats {
	return SyncStats{
		Synced:  w.synced.Load(),
		Removed: w.removed.Load(),
		Failed:  w.failed.Load(),
	}
}
