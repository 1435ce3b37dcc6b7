package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"spendtrack/internal/core"
)

const timeLayout = time.RFC3339Nano

// DBTX is satisfied by *sql.DB and *sql.Tx so queries run inside or
// outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

var (
	userColumns    = []string{"id", "name", "email", "password_hash", "details", "created_at"}
	expenseColumns = []string{
		"id", "owner_id", "title", "amount_cents", "category", "date", "note",
		"payment_method", "is_recurring", "recurrence_type", "series_id", "created_at", "updated_at",
	}
	seriesColumns = []string{
		"id", "owner_id", "base_expense_id", "title", "amount_cents", "category", "note",
		"payment_method", "kind", "anchor_day", "next_date", "active", "last_run_at", "created_at",
	}
)

// ---- users ----

func (q *Queries) InsertUser(ctx context.Context, u core.User) error {
	query, args, err := sq.Insert("users").Columns(userColumns...).
		Values(u.ID, u.Name, u.Email, u.PasswordHash, u.Details, u.CreatedAt.UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query, args...)
	return err
}

func (q *Queries) GetUser(ctx context.Context, where sq.Eq) (core.User, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return core.User{}, err
	}
	return scanUser(q.db.QueryRowContext(ctx, query, args...))
}

func scanUser(row scanner) (core.User, error) {
	var u core.User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Details, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// ---- expenses ----

func (q *Queries) InsertExpense(ctx context.Context, e core.ExpenseRecord) error {
	query, args, err := sq.Insert("expenses").Columns(expenseColumns...).
		Values(
			e.ID, e.OwnerID, e.Title, e.Amount.Cents, e.Category, e.Date.String(), e.Note,
			e.PaymentMethod, e.IsRecurring, string(e.RecurrenceType), nullString(e.SeriesID),
			e.CreatedAt.UTC().Format(timeLayout), e.UpdatedAt.UTC().Format(timeLayout),
		).ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query, args...)
	return err
}

// ReplaceExpense overwrites every mutable column of the record matching both
// id and owner. It reports the number of affected rows.
func (q *Queries) ReplaceExpense(ctx context.Context, e core.ExpenseRecord) (int64, error) {
	query, args, err := sq.Update("expenses").SetMap(map[string]interface{}{
		"title":           e.Title,
		"amount_cents":    e.Amount.Cents,
		"category":        e.Category,
		"date":            e.Date.String(),
		"note":            e.Note,
		"payment_method":  e.PaymentMethod,
		"is_recurring":    e.IsRecurring,
		"recurrence_type": string(e.RecurrenceType),
		"updated_at":      e.UpdatedAt.UTC().Format(timeLayout),
	}).Where(sq.Eq{"id": e.ID, "owner_id": e.OwnerID}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteExpense(ctx context.Context, ownerID, id string) (int64, error) {
	query, args, err := sq.Delete("expenses").Where(sq.Eq{"id": id, "owner_id": ownerID}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseRecord, error) {
	query, args, err := sq.Select(expenseColumns...).From("expenses").
		Where(sq.Eq{"id": id, "owner_id": ownerID}).Limit(1).ToSql()
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	return scanExpense(q.db.QueryRowContext(ctx, query, args...))
}

// ListExpenses returns one owner's records, newest date first.
func (q *Queries) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	b := sq.Select(expenseColumns...).From("expenses").Where(sq.Eq{"owner_id": ownerID})
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"date": f.From.String()})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.LtOrEq{"date": f.To.String()})
	}
	query, args, err := b.OrderBy("date DESC", "created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []core.ExpenseRecord
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanExpense(row scanner) (core.ExpenseRecord, error) {
	var (
		e                core.ExpenseRecord
		date, kind       string
		seriesID         sql.NullString
		created, updated string
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount.Cents, &e.Category, &date, &e.Note,
		&e.PaymentMethod, &e.IsRecurring, &kind, &seriesID, &created, &updated)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %s: %w", e.ID, err)
	}
	e.RecurrenceType = core.RecurrenceKind(kind)
	e.SeriesID = seriesID.String
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

// ---- recurrence series ----

func (q *Queries) InsertSeries(ctx context.Context, s core.RecurrenceSeries) error {
	query, args, err := sq.Insert("recurrence_series").Columns(seriesColumns...).
		Values(
			s.ID, s.OwnerID, s.BaseExpenseID, s.Title, s.Amount.Cents, s.Category, s.Note,
			s.PaymentMethod, string(s.Kind), s.AnchorDay, s.NextDate.String(), s.Active,
			nullTime(s.LastRunAt), s.CreatedAt.UTC().Format(timeLayout),
		).ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, query, args...)
	return err
}

func (q *Queries) ListSeries(ctx context.Context, where sq.Sqlizer, limit uint64) ([]core.RecurrenceSeries, error) {
	b := sq.Select(seriesColumns...).From("recurrence_series").Where(where).OrderBy("next_date ASC", "id ASC")
	if limit > 0 {
		b = b.Limit(limit)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []core.RecurrenceSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AdvanceSeries moves the cursor only if it still points at expected, so two
// workers cannot materialize the same occurrence twice.
func (q *Queries) AdvanceSeries(ctx context.Context, id string, expected, next core.Date, ranAt time.Time) (int64, error) {
	query, args, err := sq.Update("recurrence_series").
		Set("next_date", next.String()).
		Set("last_run_at", ranAt.UTC().Format(timeLayout)).
		Where(sq.Eq{"id": id, "next_date": expected.String(), "active": true}).
		ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeactivateSeries(ctx context.Context, ownerID, id string) (int64, error) {
	query, args, err := sq.Update("recurrence_series").Set("active", false).
		Where(sq.Eq{"id": id, "owner_id": ownerID, "active": true}).ToSql()
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSeries(row scanner) (core.RecurrenceSeries, error) {
	var (
		s          core.RecurrenceSeries
		kind, next string
		lastRun    sql.NullString
		created    string
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.BaseExpenseID, &s.Title, &s.Amount.Cents, &s.Category, &s.Note,
		&s.PaymentMethod, &kind, &s.AnchorDay, &next, &s.Active, &lastRun, &created)
	if err != nil {
		return core.RecurrenceSeries{}, err
	}
	s.Kind = core.RecurrenceKind(kind)
	if s.NextDate, err = core.ParseDate(next); err != nil {
		return core.RecurrenceSeries{}, fmt.Errorf("series %s: %w", s.ID, err)
	}
	if lastRun.Valid {
		t := parseTime(lastRun.String)
		s.LastRunAt = &t
	}
	s.CreatedAt = parseTime(created)
	return s, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
