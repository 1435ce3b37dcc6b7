package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/recurrence"
)

const (
	DefaultMaxCatchUp = 31
	DefaultBatchSize  = 100
)

type ProcessResult struct {
	Series  int `json:"series"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// RecurringProcessor materializes the occurrences of due recurrence series
// and advances their cursors.
type RecurringProcessor struct {
	store      SeriesStore
	recorder   Recorder
	publisher  EventPublisher
	maxCatchUp int
	batchSize  int
	newID      func() string
}

func NewRecurringProcessor(store SeriesStore, maxCatchUp, batchSize int) *RecurringProcessor {
	if maxCatchUp < 1 {
		maxCatchUp = DefaultMaxCatchUp
	}
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &RecurringProcessor{
		store:      store,
		recorder:   nopRecorder{},
		maxCatchUp: maxCatchUp,
		batchSize:  batchSize,
		newID:      uuid.NewString,
	}
}

func (p *RecurringProcessor) SetRecorder(r Recorder) {
	if r != nil {
		p.recorder = r
	}
}

// SetPublisher makes materialized occurrences emit expense.created events.
func (p *RecurringProcessor) SetPublisher(pub EventPublisher) {
	p.publisher = pub
}

// ProcessDue handles every active series whose cursor is on or before the
// calendar day of now. Missed periods are caught up, at most maxCatchUp per
// series per run. One failing series does not stop the others.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (ProcessResult, error) {
	var res ProcessResult
	if p.store == nil {
		return res, errors.New("processor not properly initialized")
	}

	today := core.Today(now)
	due, err := p.store.ListDueSeries(ctx, today, p.batchSize)
	if err != nil {
		return res, fmt.Errorf("list due series: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring series",
		"due", len(due),
		"processing_date", today.String())

	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Series++

		created, err := p.processSeries(ctx, s, today, now)
		switch {
		case errors.Is(err, core.ErrNotFound):
			// another run advanced the cursor first
			res.Skipped++
			slog.InfoContext(ctx, "Series cursor already advanced", "series_id", s.ID)
		case err != nil:
			res.Failed++
			slog.ErrorContext(ctx, "Failed to materialize series",
				"series_id", s.ID,
				"next_date", s.NextDate.String(),
				"error", err)
		default:
			res.Created += created
		}
	}

	slog.InfoContext(ctx, "Recurring processing complete",
		"series", res.Series,
		"created", res.Created,
		"failed", res.Failed,
		"skipped", res.Skipped)
	return res, nil
}

func (p *RecurringProcessor) processSeries(ctx context.Context, s core.RecurrenceSeries, today core.Date, now time.Time) (int, error) {
	if !s.Due(today) {
		return 0, nil
	}
	dates, next := recurrence.DueDates(s.NextDate, s.Kind, s.AnchorDay, today, p.maxCatchUp)
	if len(dates) == 0 || next.IsZero() {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidRecurrence, s.Kind)
	}

	occurrences := make([]core.ExpenseRecord, 0, len(dates))
	for _, d := range dates {
		occurrences = append(occurrences, s.Occurrence(p.newID(), d, now.UTC()))
	}
	if err := p.store.MaterializeSeries(ctx, s, occurrences, next, now.UTC()); err != nil {
		return 0, err
	}

	p.recorder.SeriesMaterialized(len(occurrences))
	slog.InfoContext(ctx, "Materialized recurring expense",
		"series_id", s.ID,
		"occurrences", len(occurrences),
		"amount_cents", s.Amount.Cents,
		"kind", s.Kind,
		"next_date", next.String())

	if len(dates) == p.maxCatchUp && !next.After(today.Time) {
		slog.WarnContext(ctx, "Series still behind after catch-up limit",
			"series_id", s.ID, "next_date", next.String())
	}

	p.publish(ctx, occurrences)
	return len(occurrences), nil
}

func (p *RecurringProcessor) publish(ctx context.Context, occurrences []core.ExpenseRecord) {
	if p.publisher == nil {
		return
	}
	for _, occ := range occurrences {
		if err := p.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseCreated, occ)); err != nil {
			slog.WarnContext(ctx, "Failed to publish occurrence event", "expense_id", occ.ID, "error", err)
		}
	}
}

// Run calls ProcessDue every interval, starting immediately, until ctx is
// cancelled.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Recurring run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
