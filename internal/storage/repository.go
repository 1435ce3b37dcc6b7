package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"spendtrack/internal/core"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ---- users ----

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	u.Email = normalizeEmail(u.Email)
	if err := r.queries.InsertUser(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "user_id", u.ID)
	return nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUser(ctx, sq.Eq{"email": normalizeEmail(email)})
	if err != nil {
		return core.User{}, notFound(err, "get user by email")
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	u, err := r.queries.GetUser(ctx, sq.Eq{"id": id})
	if err != nil {
		return core.User{}, notFound(err, "get user by id")
	}
	return u, nil
}

// ---- expenses ----

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ExpenseRecord) error {
	if err := r.queries.InsertExpense(ctx, e); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"owner_id", e.OwnerID,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return nil
}

// CreateExpenseWithSeries stores a recurring record and the series it opens
// in one transaction.
func (r *SQLiteRepository) CreateExpenseWithSeries(ctx context.Context, e core.ExpenseRecord, s core.RecurrenceSeries) error {
	return r.inTx(ctx, func(q *Queries) error {
		if err := q.InsertExpense(ctx, e); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		if err := q.InsertSeries(ctx, s); err != nil {
			return fmt.Errorf("create series: %w", err)
		}
		slog.InfoContext(ctx, "Recurring expense saved",
			"id", e.ID, "series_id", s.ID, "kind", s.Kind, "next_date", s.NextDate.String())
		return nil
	})
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseRecord, error) {
	e, err := r.queries.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.ExpenseRecord{}, notFound(err, "get expense")
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	list, err := r.queries.ListExpenses(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return list, nil
}

// ReplaceExpense overwrites the stored record. It returns core.ErrNotFound
// when no record has both the id and the owner.
func (r *SQLiteRepository) ReplaceExpense(ctx context.Context, e core.ExpenseRecord) error {
	n, err := r.queries.ReplaceExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("replace expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id, "owner_id", ownerID)
	return nil
}

// ---- recurrence series ----

func (r *SQLiteRepository) ListSeries(ctx context.Context, ownerID string) ([]core.RecurrenceSeries, error) {
	list, err := r.queries.ListSeries(ctx, sq.Eq{"owner_id": ownerID}, 0)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return list, nil
}

// ListDueSeries returns active series whose cursor is on or before today.
func (r *SQLiteRepository) ListDueSeries(ctx context.Context, today core.Date, limit int) ([]core.RecurrenceSeries, error) {
	where := sq.And{sq.Eq{"active": true}, sq.LtOrEq{"next_date": today.String()}}
	list, err := r.queries.ListSeries(ctx, where, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("list due series: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) StopSeries(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeactivateSeries(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("stop series: %w", err)
	}
	if n == 0 {
		existing, err := r.queries.ListSeries(ctx, sq.Eq{"id": id, "owner_id": ownerID}, 1)
		if err != nil {
			return fmt.Errorf("stop series: %w", err)
		}
		if len(existing) > 0 {
			return core.ErrSeriesInactive
		}
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Series stopped", "series_id", id, "owner_id", ownerID)
	return nil
}

// MaterializeSeries inserts the occurrences and advances the series cursor
// from s.NextDate to next atomically. If another run already moved the
// cursor, nothing is written and core.ErrNotFound is returned.
func (r *SQLiteRepository) MaterializeSeries(ctx context.Context, s core.RecurrenceSeries, occurrences []core.ExpenseRecord, next core.Date, ranAt time.Time) error {
	return r.inTx(ctx, func(q *Queries) error {
		n, err := q.AdvanceSeries(ctx, s.ID, s.NextDate, next, ranAt)
		if err != nil {
			return fmt.Errorf("advance series: %w", err)
		}
		if n == 0 {
			return core.ErrNotFound
		}
		for _, occ := range occurrences {
			if err := q.InsertExpense(ctx, occ); err != nil {
				return fmt.Errorf("insert occurrence %s: %w", occ.Date.String(), err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
