package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/core"
)

type memStore struct {
	mu       sync.Mutex
	users    map[string]core.User
	expenses map[string]core.ExpenseRecord
	series   map[string]core.RecurrenceSeries
	failList error
	failMat  map[string]error
	onList   func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]core.User{},
		expenses: map[string]core.ExpenseRecord{},
		series:   map[string]core.RecurrenceSeries{},
		failMat:  map[string]error{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == strings.ToLower(u.Email) {
			return core.ErrEmailTaken
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (core.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateExpense(_ context.Context, e core.ExpenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = e
	return nil
}

func (m *memStore) CreateExpenseWithSeries(_ context.Context, e core.ExpenseRecord, s core.RecurrenceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = e
	m.series[s.ID] = s
	return nil
}

func (m *memStore) GetExpense(_ context.Context, ownerID, id string) (core.ExpenseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.ExpenseRecord{}, core.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListExpenses(_ context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	if m.onList != nil {
		m.onList()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var out []core.ExpenseRecord
	for _, e := range m.expenses {
		if e.OwnerID != ownerID {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if !f.From.IsZero() && e.Date.Before(f.From.Time) {
			continue
		}
		if !f.To.IsZero() && e.Date.After(f.To.Time) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return out, nil
}

func (m *memStore) ReplaceExpense(_ context.Context, e core.ExpenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.expenses[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return core.ErrNotFound
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *memStore) DeleteExpense(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *memStore) ListSeries(_ context.Context, ownerID string) ([]core.RecurrenceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurrenceSeries
	for _, s := range m.series {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) StopSeries(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.series[id]
	if !ok || s.OwnerID != ownerID {
		return core.ErrNotFound
	}
	if !s.Active {
		return core.ErrSeriesInactive
	}
	s.Active = false
	m.series[id] = s
	return nil
}

func (m *memStore) ListDueSeries(_ context.Context, today core.Date, limit int) ([]core.RecurrenceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RecurrenceSeries
	for _, s := range m.series {
		if s.Active && !s.NextDate.After(today.Time) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MaterializeSeries(_ context.Context, s core.RecurrenceSeries, occ []core.ExpenseRecord, next core.Date, ranAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failMat[s.ID]; err != nil {
		return err
	}
	cur, ok := m.series[s.ID]
	if !ok || !cur.Active || !cur.NextDate.Equal(s.NextDate.Time) {
		return core.ErrNotFound
	}
	for _, e := range occ {
		m.expenses[e.ID] = e
	}
	cur.NextDate = next
	cur.LastRunAt = &ranAt
	m.series[s.ID] = cur
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type countingRecorder struct {
	created      int
	materialized int
}

func (c *countingRecorder) ExpenseCreated(string)    { c.created++ }
func (c *countingRecorder) SeriesMaterialized(n int) { c.materialized += n }

type spyInvalidator struct{ users []string }

func (s *spyInvalidator) InvalidateUser(id string) { s.users = append(s.users, id) }

type stubRenderer struct {
	html string
	err  error
}

func (r *stubRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

var errBoom = errors.New("boom")
