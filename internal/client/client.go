// Package client is a typed HTTP client for the spendtrack API, used by the
// terminal client and the offline outbox.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
	"spendtrack/internal/services"
)

const (
	requestTimeout = 15 * time.Second
	maxBodySize    = 10 << 20
)

// ErrUnauthorized means the stored token is missing, expired or rejected.
var ErrUnauthorized = errors.New("unauthorized: run login again")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Rejected reports whether resending the same request cannot succeed.
// Auth failures, timeouts and throttling are retryable.
func (e *APIError) Rejected() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.Status >= 400 && e.Status < 500
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Register(ctx context.Context, in services.RegisterInput) (services.Session, error) {
	var sess services.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &sess)
	if err == nil {
		c.token = sess.Token
	}
	return sess, err
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (services.Session, error) {
	var sess services.Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", services.LoginInput{Email: email, Password: password}, &sess)
	if err == nil {
		c.token = sess.Token
	}
	return sess, err
}

func (c *Client) Me(ctx context.Context) (core.User, error) {
	var u core.User
	return u, c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u)
}

func (c *Client) CreateExpense(ctx context.Context, in core.ExpenseInput) (core.ExpenseRecord, error) {
	var rec core.ExpenseRecord
	return rec, c.do(ctx, http.MethodPost, "/api/expenses", in, &rec)
}

// Submit sends a queued expense. It satisfies outbox.Submitter.
func (c *Client) Submit(ctx context.Context, in core.ExpenseInput) error {
	_, err := c.CreateExpense(ctx, in)
	return err
}

func (c *Client) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.ExpenseRecord, error) {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.String())
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.String())
	}
	path := "/api/expenses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var recs []core.ExpenseRecord
	return recs, c.do(ctx, http.MethodGet, path, nil, &recs)
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil)
}

// Dashboard fetches the dashboard; a zero goal disables goal tracking.
func (c *Client) Dashboard(ctx context.Context, goal decimal.Decimal) (services.DashboardView, error) {
	path := "/api/dashboard"
	if goal.IsPositive() {
		path += "?goal=" + url.QueryEscape(goal.String())
	}
	var view services.DashboardView
	return view, c.do(ctx, http.MethodGet, path, nil, &view)
}

func (c *Client) ListSeries(ctx context.Context) ([]core.RecurrenceSeries, error) {
	var series []core.RecurrenceSeries
	return series, c.do(ctx, http.MethodGet, "/api/series", nil, &series)
}

func (c *Client) StopSeries(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/series/"+url.PathEscape(id)+"/stop", nil, nil)
}

// ExportPDF returns the rendered document bytes.
func (c *Client) ExportPDF(ctx context.Context, req services.ExportRequest) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/expenses/export-pdf", req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	pdf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return pdf, nil
}

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
