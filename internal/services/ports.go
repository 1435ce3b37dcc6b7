package services

import (
	"context"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
)

// ExpenseStore is the persistence the expense and dashboard services need.
// *storage.SQLiteRepository implements it.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.ExpenseRecord) error
	CreateExpenseWithSeries(ctx context.Context, e core.ExpenseRecord, s core.RecurrenceSeries) error
	GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseRecord, error)
	ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseRecord, error)
	ReplaceExpense(ctx context.Context, e core.ExpenseRecord) error
	DeleteExpense(ctx context.Context, ownerID, id string) error
	ListSeries(ctx context.Context, ownerID string) ([]core.RecurrenceSeries, error)
	StopSeries(ctx context.Context, ownerID, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
}

// SeriesStore is what the recurring processor reads and advances.
type SeriesStore interface {
	ListDueSeries(ctx context.Context, today core.Date, limit int) ([]core.RecurrenceSeries, error)
	MaterializeSeries(ctx context.Context, s core.RecurrenceSeries, occurrences []core.ExpenseRecord, next core.Date, ranAt time.Time) error
}

// EventPublisher is satisfied by *amqp.Client. Publishing is best-effort.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// Recorder receives business counters. *metrics.Metrics implements it.
type Recorder interface {
	ExpenseCreated(category string)
	SeriesMaterialized(occurrences int)
}

// Invalidator drops cached views derived from one user's records.
type Invalidator interface {
	InvalidateUser(userID string)
}

type nopRecorder struct{}

func (nopRecorder) ExpenseCreated(string)  {}
func (nopRecorder) SeriesMaterialized(int) {}
