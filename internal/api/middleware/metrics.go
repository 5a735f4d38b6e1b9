package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/proctor-go/internal/observability/metrics"
)

// unmatchedPath groups requests that hit no route so scanners cannot blow up label cardinality
const unmatchedPath = "unmatched"

// NewHTTPMetrics records request counts, latency, response size and
// in-flight requests. Paths are route patterns, never raw URIs.
func NewHTTPMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}

			m.RequestStarted()
			defer m.RequestFinished()

			start := time.Now()
			err := next(c)

			req := c.Request()
			path := c.Path()
			if path == "" || errors.Is(err, echo.ErrNotFound) {
				path = unmatchedPath
			}

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
				m.RecordHTTPRequestError(req.Method, path, http.StatusText(status))
			}

			m.RecordHTTPRequest(req.Method, path, status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(req.Method, path, c.Response().Size)
			return err
		}
	}
}
