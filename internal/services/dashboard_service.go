package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendtrack/internal/analysis"
	"spendtrack/internal/cache"
	"spendtrack/internal/core"
)

// DashboardView is the dashboard plus the caller's series, returned by
// GET /api/dashboard.
type DashboardView struct {
	analysis.Dashboard
	Series []core.RecurrenceSeries `json:"series"`
	Cached bool                    `json:"cached"`
}

// DashboardService builds dashboards from stored records and keeps the
// result per (user, goal, month) until that user writes again.
type DashboardService struct {
	store ExpenseStore
	cache cache.Cache[DashboardView]
	now   func() time.Time

	// gens counts invalidations per user. A view loaded under an older
	// generation is returned but never cached.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewDashboardService(store ExpenseStore, c cache.Cache[DashboardView]) *DashboardService {
	return &DashboardService{store: store, cache: c, now: time.Now, gens: map[string]uint64{}}
}

// Dashboard reports on the current UTC month, the same clock that dates
// new records.
func (s *DashboardService) Dashboard(ctx context.Context, userID string, goal decimal.Decimal) (DashboardView, error) {
	now := s.now().UTC()
	key := dashboardKey(userID, goal, analysis.CurrentMonthKey(now))
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			v.Cached = true
			return v, nil
		}
	}
	gen := s.generation(userID)

	var (
		records []core.ExpenseRecord
		series  []core.RecurrenceSeries
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.store.ListExpenses(gctx, userID, core.ExpenseFilter{})
		if err != nil {
			return fmt.Errorf("load expenses: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		series, err = s.store.ListSeries(gctx, userID)
		if err != nil {
			return fmt.Errorf("load series: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, err
	}

	view := DashboardView{
		Dashboard: analysis.BuildDashboard(analysis.FromRecords(records), goal, now),
		Series:    activeSeries(series),
	}
	s.keep(userID, gen, key, view)
	return view, nil
}

// InvalidateUser implements Invalidator.
func (s *DashboardService) InvalidateUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[userID]++
	if s.cache != nil {
		s.cache.DeletePrefix(userID + "|")
	}
}

func (s *DashboardService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// keep caches view unless userID wrote after gen was read.
func (s *DashboardService) keep(userID string, gen uint64, key string, view DashboardView) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[userID] == gen {
		s.cache.Set(key, view)
	}
}

func dashboardKey(userID string, goal decimal.Decimal, month string) string {
	return userID + "|" + goal.String() + "|" + month
}

func activeSeries(all []core.RecurrenceSeries) []core.RecurrenceSeries {
	out := make([]core.RecurrenceSeries, 0, len(all))
	for _, s := range all {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}
