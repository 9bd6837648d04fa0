package middleware

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"checkbox/internal/caching"

	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware throttles requests per client IP and path using the
// shared Redis counter. A cache outage fails open: requests pass, the error
// is logged.
func RateLimitMiddleware(cacheSvc caching.CacheService, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("%s:%s", c.RealIP(), c.Path())

			limited, err := cacheSvc.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				log.Printf("Rate limit check failed: %v", err)
				return next(c)
			}
			if limited {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			}

			return next(c)
		}
	}
}
