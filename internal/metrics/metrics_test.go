package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ExpenseCreated("Food")
	m.ExpenseCreated("Food")
	m.ExpenseCreated("Rent")
	m.SeriesMaterialized(3)
	m.SeriesMaterialized(0)
	m.RateLimited()
	m.Suspicious()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.expensesCreated.WithLabelValues("Food")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.expensesCreated.WithLabelValues("Rent")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.seriesMaterialized))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.suspicious))
}

func TestHandlerExposesRequestHistogram(t *testing.T) {
	m := New()
	m.ObserveRequest("GET /api/expenses", http.MethodGet, 200, 20*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, 404, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `spendtrack_http_request_duration_seconds_count{method="GET",route="GET /api/expenses",status="200"} 1`)
	assert.Contains(t, text, `route="unmatched"`)
	assert.Contains(t, text, "go_goroutines")
}
