// Package outbox keeps expenses that could not reach the API in a local
// SQLite queue and replays them in order once the API is reachable again.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spendtrack/internal/core"
)

type State string

const (
	StatePending State = "pending"
	// StateDead holds rows the API refused; they are kept for inspection
	// and never retried.
	StateDead State = "dead"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outbox (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    payload     TEXT NOT NULL,
    state       TEXT NOT NULL DEFAULT 'pending',
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outbox_state ON outbox(state, id);
`

// Queue is the offline capability the terminal client depends on.
type Queue interface {
	Enqueue(ctx context.Context, in core.ExpenseInput) (int64, error)
	DrainAndSync(ctx context.Context) (SyncReport, error)
}

// Submitter delivers one queued expense. An error implementing
// Rejected() bool that reports true marks the row dead; any other error
// stops the drain and leaves the row pending.
type Submitter interface {
	Submit(ctx context.Context, in core.ExpenseInput) error
}

type rejection interface {
	Rejected() bool
}

type SyncReport struct {
	Sent      int
	Rejected  int
	Remaining int
}

// Entry is a queued expense as stored.
type Entry struct {
	ID        int64
	Input     core.ExpenseInput
	State     State
	Attempts  int
	LastError string
	CreatedAt time.Time
}

type SQLiteQueue struct {
	db        *sql.DB
	submitter Submitter
	now       func() time.Time
}

var _ Queue = (*SQLiteQueue)(nil)

// Open creates or opens the queue database at dbPath.
func Open(dbPath string, submitter Submitter) (*SQLiteQueue, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create outbox dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open outbox db: %w", err)
	}
	// One writer keeps FIFO ids strictly ordered.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create outbox schema: %w", err)
	}
	return &SQLiteQueue{db: db, submitter: submitter, now: time.Now}, nil
}

func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

func (q *SQLiteQueue) Enqueue(ctx context.Context, in core.ExpenseInput) (int64, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode expense: %w", err)
	}
	ts := q.timestamp()
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO outbox (payload, state, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		string(payload), StatePending, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("enqueue expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense queued offline", "outbox_id", id, "title", in.Title)
	return id, nil
}

// DrainAndSync submits pending rows oldest first. Delivered rows are
// deleted and rejected rows turn dead. The first other failure ends the
// drain; that row and the ones after it stay pending.
func (q *SQLiteQueue) DrainAndSync(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	if q.submitter == nil {
		return report, errors.New("outbox has no submitter")
	}

	pending, err := q.list(ctx, StatePending)
	if err != nil {
		return report, err
	}

	for i, e := range pending {
		if err := ctx.Err(); err != nil {
			report.Remaining = len(pending) - i
			return report, err
		}

		subErr := q.submitter.Submit(ctx, e.Input)
		var rej rejection
		switch {
		case subErr == nil:
			if _, err := q.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, e.ID); err != nil {
				report.Remaining = len(pending) - i
				return report, fmt.Errorf("remove delivered row %d: %w", e.ID, err)
			}
			report.Sent++
		case errors.As(subErr, &rej) && rej.Rejected():
			if err := q.mark(ctx, e.ID, StateDead, subErr); err != nil {
				report.Remaining = len(pending) - i
				return report, err
			}
			slog.WarnContext(ctx, "Queued expense rejected", "outbox_id", e.ID, "error", subErr)
			report.Rejected++
		default:
			if err := q.mark(ctx, e.ID, StatePending, subErr); err != nil {
				slog.ErrorContext(ctx, "Failed to record outbox attempt", "outbox_id", e.ID, "error", err)
			}
			report.Remaining = len(pending) - i
			return report, fmt.Errorf("submit queued expense %d: %w", e.ID, subErr)
		}
	}
	return report, nil
}

// Pending lists rows still waiting to be sent, oldest first.
func (q *SQLiteQueue) Pending(ctx context.Context) ([]Entry, error) {
	return q.list(ctx, StatePending)
}

// Dead lists rows the API refused.
func (q *SQLiteQueue) Dead(ctx context.Context) ([]Entry, error) {
	return q.list(ctx, StateDead)
}

// PurgeDead drops every dead row and reports how many were removed.
func (q *SQLiteQueue) PurgeDead(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM outbox WHERE state = ?`, StateDead)
	if err != nil {
		return 0, fmt.Errorf("purge dead rows: %w", err)
	}
	return res.RowsAffected()
}

func (q *SQLiteQueue) list(ctx context.Context, state State) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, payload, state, attempts, COALESCE(last_error, ''), created_at
		 FROM outbox WHERE state = ? ORDER BY id`, state)
	if err != nil {
		return nil, fmt.Errorf("list %s rows: %w", state, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			payload string
			created string
		)
		if err := rows.Scan(&e.ID, &payload, &e.State, &e.Attempts, &e.LastError, &created); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &e.Input); err != nil {
			return nil, fmt.Errorf("decode outbox row %d: %w", e.ID, err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *SQLiteQueue) mark(ctx context.Context, id int64, state State, cause error) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE outbox SET state = ?, attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`,
		state, cause.Error(), q.timestamp(), id)
	if err != nil {
		return fmt.Errorf("update outbox row %d: %w", id, err)
	}
	return nil
}

func (q *SQLiteQueue) timestamp() string {
	return q.now().UTC().Format(time.RFC3339Nano)
}
