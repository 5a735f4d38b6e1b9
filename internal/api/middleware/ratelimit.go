package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// rateLimitExpiry is how long an idle client's token bucket is kept
const rateLimitExpiry = 3 * time.Minute

// RateLimitConfig limits analysis requests per client IP
type RateLimitConfig struct {
	PerSecond float64 // sustained requests per second, 0 disables limiting
	Burst     int     // requests allowed above the sustained rate
}

// NewRateLimiter returns a per-IP token bucket limiter. Rejected requests get
// 429 through the server's error handler, so they keep the JSON envelope.
func NewRateLimiter(config RateLimitConfig) echo.MiddlewareFunc {
	if config.PerSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(config.PerSecond),
				Burst:     max(config.Burst, 1),
				ExpiresIn: rateLimitExpiry,
			},
		),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "client address could not be determined")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many analysis requests, slow down")
		},
	})
}
