// Package memory is an in-process Mirror for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"spendtrack/internal/core"
	"spendtrack/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows map[string]core.ExpenseRecord
	// ops counts every accepted call, for observing redeliveries.
	ops int
}

func New() *Store {
	return &Store{rows: map[string]core.ExpenseRecord{}}
}

func (s *Store) Upsert(_ context.Context, e core.ExpenseRecord) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = e
	s.ops++
	return nil
}

func (s *Store) Remove(_ context.Context, e core.ExpenseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, e.ID)
	s.ops++
	return nil
}

// Rows returns the mirrored rows ordered by date, then id.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]core.ExpenseRecord, 0, len(s.rows))
	for _, r := range s.rows {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date.Time) {
			return recs[i].Date.Before(recs[j].Date.Time)
		}
		return recs[i].ID < recs[j].ID
	})

	out := make([][]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, sheets.Row(r))
	}
	return out
}

func (s *Store) Ops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops
}
