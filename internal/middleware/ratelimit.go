package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-calendar/internal/ratelimit"
)

// RateLimit throttles an endpoint class per client IP using the
// in-process limiter. Keys look like "login:1.2.3.4" so register,
// verify and login are counted independently.
func RateLimit(l *ratelimit.Limiter, class string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := l.Check(class + ":" + clientIP(c.Request()))
			if !res.Allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(res.RetryAfterSeconds))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too many attempts, please try again later",
					"retry_after": res.RetryAfterSeconds,
				})
			}
			return next(c)
		}
	}
}

// clientIP extracts the caller's address: first X-Forwarded-For entry,
// then X-Real-Ip, then the shared "unknown" bucket. The unknown bucket
// is an accepted degradation, not a security boundary.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return "unknown"
}
