package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/proctor-go/internal/logger"
	"github.com/tphakala/proctor-go/internal/observability/metrics"
)

func TestHTTPMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(registry)
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewHTTPMetrics(m))
	e.GET("/items/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	expected := `
# HELP proctor_http_requests_total Total number of HTTP requests
# TYPE proctor_http_requests_total counter
proctor_http_requests_total{method="GET",path="/items/:id",status_code="200"} 2
proctor_http_requests_total{method="GET",path="unmatched",status_code="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "proctor_http_requests_total"))
	assert.InDelta(t, 0, m.InFlight(), 0)
}

func TestHTTPMetricsNilIsPassthrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewHTTPMetrics(nil))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRequestIDReachesLogs(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	e := echo.New()
	e.Use(NewRequestID())
	e.Use(NewRequestLogger(log))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "trace-7")
	e.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"trace-7"`)
	assert.Contains(t, out, `"status":200`)
}

func TestRequestIDIsGenerated(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewRequestID())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestRateLimiterRejectsBurstOverflow(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/analyze-face", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewRateLimiter(RateLimitConfig{PerSecond: 0.001, Burst: 2}))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-face", http.NoBody))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Buckets are per client address
	req := httptest.NewRequest(http.MethodPost, "/analyze-face", http.NoBody)
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/analyze-audio", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, NewRateLimiter(RateLimitConfig{}))

	for range 50 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze-audio", http.NoBody))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
