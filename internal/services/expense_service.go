package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
	"spendtrack/internal/recurrence"
)

// ExpenseService orchestrates expense writes across SQLite, the event bus
// and the dashboard cache. SQLite is the source of truth; events and cache
// invalidation never fail a request.
type ExpenseService struct {
	store       ExpenseStore
	publisher   EventPublisher
	invalidator Invalidator
	recorder    Recorder
	now         func() time.Time
	newID       func() string
}

type ExpenseOption func(*ExpenseService)

func WithPublisher(p EventPublisher) ExpenseOption {
	return func(s *ExpenseService) { s.publisher = p }
}

func WithInvalidator(i Invalidator) ExpenseOption {
	return func(s *ExpenseService) { s.invalidator = i }
}

func WithRecorder(r Recorder) ExpenseOption {
	return func(s *ExpenseService) { s.recorder = r }
}

func WithClock(now func() time.Time) ExpenseOption {
	return func(s *ExpenseService) { s.now = now }
}

func NewExpenseService(store ExpenseStore, opts ...ExpenseOption) *ExpenseService {
	s := &ExpenseService{
		store:    store,
		recorder: nopRecorder{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, stores it for ownerID and, when the record repeats,
// opens a RecurrenceSeries whose cursor is the next occurrence after the
// record's own date.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in core.ExpenseInput) (core.ExpenseRecord, error) {
	now := s.now().UTC()
	rec, err := in.Normalize(core.Today(now))
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	rec.ID = s.newID()
	rec.OwnerID = ownerID
	rec.CreatedAt, rec.UpdatedAt = now, now

	if rec.StartsSeries() {
		series, err := s.openSeries(&rec, now)
		if err != nil {
			return core.ExpenseRecord{}, err
		}
		if err := s.store.CreateExpenseWithSeries(ctx, rec, series); err != nil {
			return core.ExpenseRecord{}, fmt.Errorf("save recurring expense: %w", err)
		}
	} else if err := s.store.CreateExpense(ctx, rec); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("save expense: %w", err)
	}

	s.recorder.ExpenseCreated(rec.Category)
	s.afterWrite(ctx, amqp.EventExpenseCreated, rec)
	return rec, nil
}

func (s *ExpenseService) openSeries(rec *core.ExpenseRecord, now time.Time) (core.RecurrenceSeries, error) {
	next, ok := recurrence.Next(rec.Date, rec.RecurrenceType)
	if !ok {
		return core.RecurrenceSeries{}, core.ErrInvalidRecurrence
	}
	series := core.RecurrenceSeries{
		ID:            s.newID(),
		OwnerID:       rec.OwnerID,
		BaseExpenseID: rec.ID,
		Title:         rec.Title,
		Amount:        rec.Amount,
		Category:      rec.Category,
		Note:          rec.Note,
		PaymentMethod: rec.PaymentMethod,
		Kind:          rec.RecurrenceType,
		AnchorDay:     rec.Date.Day(),
		NextDate:      next,
		Active:        true,
		CreatedAt:     now,
	}
	if err := series.Validate(); err != nil {
		return core.RecurrenceSeries{}, err
	}
	rec.SeriesID = series.ID
	return series, nil
}

func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.ExpenseRecord, error) {
	return s.store.GetExpense(ctx, ownerID, id)
}

func (s *ExpenseService) List(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	return s.store.ListExpenses(ctx, ownerID, f)
}

// Replace overwrites the whole record. Identity, ownership, series link and
// creation time are kept from the stored record.
func (s *ExpenseService) Replace(ctx context.Context, ownerID, id string, in core.ExpenseInput) (core.ExpenseRecord, error) {
	current, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	now := s.now().UTC()
	rec, err := in.Normalize(core.Today(now))
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	rec.ID = current.ID
	rec.OwnerID = current.OwnerID
	rec.SeriesID = current.SeriesID
	rec.CreatedAt = current.CreatedAt
	rec.UpdatedAt = now

	if err := s.store.ReplaceExpense(ctx, rec); err != nil {
		return core.ExpenseRecord{}, err
	}
	s.afterWrite(ctx, amqp.EventExpenseUpdated, rec)
	return rec, nil
}

// Delete removes the record. The deleted event carries the last stored
// state so mirrors can locate the row by date and id.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	rec, err := s.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.EventExpenseDeleted, rec)
	return nil
}

func (s *ExpenseService) ListSeries(ctx context.Context, ownerID string) ([]core.RecurrenceSeries, error) {
	return s.store.ListSeries(ctx, ownerID)
}

func (s *ExpenseService) StopSeries(ctx context.Context, ownerID, id string) error {
	if err := s.store.StopSeries(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidate(ownerID)
	return nil
}

func (s *ExpenseService) afterWrite(ctx context.Context, t amqp.EventType, rec core.ExpenseRecord) {
	s.invalidate(rec.OwnerID)

	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "event", t)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, rec)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"event", t,
			"expense_id", rec.ID,
			"error", err)
	}
}

func (s *ExpenseService) invalidate(ownerID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(ownerID)
	}
}
