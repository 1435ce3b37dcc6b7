package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendtrack/internal/auth"
	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	applog "spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/storage"
)

type stubRenderer struct {
	html string
	err  error
}

func (r *stubRenderer) RenderPDF(_ context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.4 test"), nil
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("database is locked") }

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	renderer *stubRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)
	dashboards := services.NewDashboardService(repo, cache.NewLRUCache[services.DashboardView](10, time.Minute))
	renderer := &stubRenderer{}

	srv, err := NewServer(":0", Deps{
		Auth:         services.NewAuthService(repo, tokens),
		Expenses:     services.NewExpenseService(repo, services.WithInvalidator(dashboards)),
		Dashboards:   dashboards,
		Exports:      services.NewExportService(repo, renderer),
		Tokens:       tokens,
		DB:           repo,
		Logger:       applog.New(applog.Config{Output: io.Discard}),
		RateLimitRPM: 1000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{t: t, handler: srv.Handler, renderer: renderer}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(email string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": email, "password": "secret1",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess services.Session
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(e.t, sess.Token)
	return sess.Token
}

func (e *testEnv) create(token string, body map[string]any) core.ExpenseRecord {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/expenses", token, body)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out core.ExpenseRecord
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="GET /ready"`)
}

func TestReadyReportsDatabaseDown(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)
	srv, err := NewServer(":0", Deps{Tokens: tokens, DB: downDB{}, Logger: applog.New(applog.Config{Output: io.Discard})})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")

	rec := env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ADA@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bob", "email": "not-an-email", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email: must be a valid email", errorMessage(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password: must be at least 6 characters", errorMessage(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", errorMessage(t, rec))

	rec = env.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = env.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseCRUD(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")

	created := env.create(token, map[string]any{"title": "Lunch", "amount": 12.5, "date": "2025-06-03"})
	assert.Equal(t, "General", created.Category)
	assert.Equal(t, "Cash", created.PaymentMethod)
	assert.Equal(t, int64(1250), created.Amount.Cents)

	rec := env.do(http.MethodGet, "/api/expenses/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/api/expenses/"+created.ID, token, map[string]any{
		"title": "Team lunch", "amount": "30.00", "category": "Food", "date": "2025-06-03",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replaced core.ExpenseRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replaced))
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "Food", replaced.Category)
	assert.Equal(t, int64(3000), replaced.Amount.Cents)

	rec = env.do(http.MethodDelete, "/api/expenses/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Expense deleted"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/expenses/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Expense not found", errorMessage(t, rec))

	rec = env.do(http.MethodDelete, "/api/expenses/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExpenseValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")

	tests := []struct {
		name string
		body any
		want string
	}{
		{"missing amount", map[string]any{"title": "Lunch"}, "amount: is required"},
		{"negative amount", map[string]any{"title": "Lunch", "amount": -5}, core.ErrInvalidAmount.Error()},
		{"blank title", map[string]any{"title": "   ", "amount": 5}, core.ErrEmptyTitle.Error()},
		{"bad date", map[string]any{"title": "Lunch", "amount": 5, "date": "03/06/2025"}, "invalid date"},
		{"bad recurrence", map[string]any{"title": "Rent", "amount": 5, "isRecurring": true, "recurrenceType": "hourly"}, "invalid recurrence type"},
		{"malformed json", `{"title":`, "invalid JSON"},
		{"empty body", "", "request body is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/expenses", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.want)
		})
	}
}

func TestExpensesAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	ada := env.register("ada@example.com")
	bob := env.register("bob@example.com")

	rec := env.create(ada, map[string]any{"title": "Books", "amount": 20})

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/expenses/"+rec.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/expenses/"+rec.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPut, "/api/expenses/"+rec.ID, bob, map[string]any{"title": "X", "amount": 1}).Code)

	list := env.do(http.MethodGet, "/api/expenses", bob, nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, `[]`, list.Body.String())
}

func TestListExpensesFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")
	env.create(token, map[string]any{"title": "A", "amount": 1, "category": "Food", "date": "2025-05-01"})
	env.create(token, map[string]any{"title": "B", "amount": 2, "category": "Food", "date": "2025-06-01"})
	env.create(token, map[string]any{"title": "C", "amount": 3, "category": "Rent", "date": "2025-06-02"})

	decode := func(rec *httptest.ResponseRecorder) []string {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var recs []core.ExpenseRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
		titles := make([]string, 0, len(recs))
		for _, r := range recs {
			titles = append(titles, r.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"C", "B", "A"}, decode(env.do(http.MethodGet, "/api/expenses", token, nil)))
	assert.Equal(t, []string{"B", "A"}, decode(env.do(http.MethodGet, "/api/expenses?category=Food", token, nil)))
	assert.Equal(t, []string{"C", "B"}, decode(env.do(http.MethodGet, "/api/expenses?from=2025-06-01&to=2025-06-30", token, nil)))

	rec := env.do(http.MethodGet, "/api/expenses?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodGet, "/api/expenses?from=2025-07-01&to=2025-06-01", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")
	env.create(token, map[string]any{"title": "Groceries", "amount": 100, "category": "Food", "date": "2025-06-01"})
	env.create(token, map[string]any{"title": "Dinner", "amount": 50, "category": "Food", "date": "2025-06-10"})
	env.create(token, map[string]any{"title": "Bus", "amount": 10, "category": "Transport", "date": "2025-06-12"})

	rec := env.do(http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view struct {
		Month    string   `json:"month"`
		Insights []string `json:"insights"`
		Cached   bool     `json:"cached"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Contains(t, view.Insights, "Consider reducing your spending on Food (93.8% of total).")
	assert.False(t, view.Cached)

	rec = env.do(http.MethodGet, "/api/dashboard", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.True(t, view.Cached)

	// A write by the same user drops the cached view.
	env.create(token, map[string]any{"title": "Taxi", "amount": 5, "category": "Transport", "date": "2025-06-13"})
	rec = env.do(http.MethodGet, "/api/dashboard", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.False(t, view.Cached)

	rec = env.do(http.MethodGet, "/api/dashboard?goal=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodGet, "/api/dashboard?goal=lots", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeriesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")
	created := env.create(token, map[string]any{
		"title": "Rent", "amount": 800, "date": "2025-01-31", "isRecurring": true, "recurrenceType": "monthly",
	})
	require.NotEmpty(t, created.SeriesID)

	rec := env.do(http.MethodGet, "/api/series", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var series []core.RecurrenceSeries
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &series))
	require.Len(t, series, 1)
	assert.Equal(t, "2025-02-28", series[0].NextDate.String())
	assert.True(t, series[0].Active)

	rec = env.do(http.MethodPost, "/api/series/"+created.SeriesID+"/stop", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/series/"+created.SeriesID+"/stop", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Series not found", errorMessage(t, rec))
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("ada@example.com")
	env.create(token, map[string]any{"title": "Lunch", "amount": 12.5, "category": "Food", "date": "2025-06-03", "note": "with Bob"})
	env.create(token, map[string]any{"title": "Old", "amount": 1, "date": "2024-01-01"})

	rec := env.do(http.MethodPost, "/api/expenses/export-pdf", token, map[string]string{
		"startDate": "2025-06-01", "endDate": "2025-06-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="expenses.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
	assert.Contains(t, env.renderer.html, "1. Lunch | $12.50 | Food | 2025-06-03 | Cash | with Bob")
	assert.NotContains(t, env.renderer.html, "Old")

	rec = env.do(http.MethodPost, "/api/expenses/export-pdf", token, map[string]string{"startDate": "June"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "startDate")

	env.renderer.err = errors.New("chrome crashed")
	rec = env.do(http.MethodPost, "/api/expenses/export-pdf", token, map[string]string{})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", errorMessage(t, rec))
}

func TestSuspiciousAndUnknownRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/.git/config", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", errorMessage(t, rec))
}

func TestRateLimit(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "rl.db"))
	require.NoError(t, err)
	defer repo.Close()
	tokens := auth.NewTokenService("test-secret-0123456789", time.Hour)

	srv, err := NewServer(":0", Deps{
		Auth:         services.NewAuthService(repo, tokens),
		Tokens:       tokens,
		Logger:       applog.New(applog.Config{Output: io.Discard}),
		RateLimitRPM: 2,
	})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
		srv.Handler.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
}
