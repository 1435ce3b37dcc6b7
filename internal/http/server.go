// Package http serves the JSON API: auth, expenses, dashboards, series and
// PDF export, plus health, readiness and Prometheus endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"spendtrack/internal/auth"
	applog "spendtrack/internal/log"
	"spendtrack/internal/metrics"
	"spendtrack/internal/middleware/ratelimit"
	"spendtrack/internal/middleware/security"
	"spendtrack/internal/middleware/trace"
	"spendtrack/internal/services"
)

// Pinger reports database reachability for /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth       *services.AuthService
	Expenses   *services.ExpenseService
	Dashboards *services.DashboardService
	Exports    *services.ExportService
	Tokens     auth.Verifier
	DB         Pinger
	Metrics    *metrics.Metrics
	Logger     *applog.Logger

	TrustedProxies []string
	RateLimitRPM   int
}

type Server struct {
	http.Server

	auth       *services.AuthService
	expenses   *services.ExpenseService
	dashboards *services.DashboardService
	exports    *services.ExportService
	db         Pinger
	metrics    *metrics.Metrics

	limiter      *ratelimit.Limiter
	stopLimiter  context.CancelFunc
	requireToken func(http.Handler) http.Handler
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	detector, err := security.NewDetector(d.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		auth:         d.Auth,
		expenses:     d.Expenses,
		dashboards:   d.Dashboards,
		exports:      d.Exports,
		db:           d.DB,
		metrics:      d.Metrics,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitRPM}),
		requireToken: auth.Middleware(d.Tokens),
	}

	limitCtx, cancel := context.WithCancel(context.Background())
	s.stopLimiter = cancel
	go s.limiter.Run(limitCtx)

	mux := http.NewServeMux()
	s.routes(mux, detector)

	handler := trace.Route(mux)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(func(r *http.Request) {
		d.Metrics.Suspicious()
		slog.WarnContext(r.Context(), "Suspicious request rejected",
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, detector.ExtractClientIP(r))
	})(handler)
	handler = applog.Middleware(d.Logger)(handler)
	handler = trace.NewMiddleware(d.Logger, detector.ExtractClientIP, d.Metrics).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux, detector *security.Detector) {
	limit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RateLimited()
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
	})
	public := func(h http.HandlerFunc) http.Handler { return limit(h) }
	private := func(h http.HandlerFunc) http.Handler { return limit(s.requireToken(h)) }

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.Handle("POST /api/auth/register", public(s.handleRegister))
	mux.Handle("POST /api/auth/login", public(s.handleLogin))
	mux.Handle("GET /api/auth/me", private(s.handleMe))

	mux.Handle("GET /api/expenses", private(s.handleListExpenses))
	mux.Handle("POST /api/expenses", private(s.handleCreateExpense))
	mux.Handle("POST /api/expenses/export-pdf", private(s.handleExportPDF))
	mux.Handle("GET /api/expenses/{id}", private(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", private(s.handleReplaceExpense))
	mux.Handle("DELETE /api/expenses/{id}", private(s.handleDeleteExpense))

	mux.Handle("GET /api/dashboard", private(s.handleDashboard))
	mux.Handle("GET /api/series", private(s.handleListSeries))
	mux.Handle("POST /api/series/{id}/stop", private(s.handleStopSeries))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
}

// Shutdown stops the limiter janitor and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopLimiter != nil {
		s.stopLimiter()
	}
	return s.Server.Shutdown(ctx)
}

// ListenAndServe treats a graceful shutdown as success.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// userID is set by the auth middleware on every private route.
func userID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
