package icebreakr

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// CallerIdentity derives the quota key for r: the first X-Forwarded-For
// entry, else X-Real-IP, else the connection's remote host, else "unknown".
// The headers are client-controlled and only ever used as a counter key.
func CallerIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// billingLimiter caps how often one caller can hit the payments provider
// through verify-pro and checkout. It is a token bucket per caller,
// separate from the free-tier quota.
func (a *App) billingLimiter() echo.MiddlewareFunc {
	perMinute := a.Config.BillingRequestsPerMinute
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return CallerIdentity(c.Request()), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return JSONError(c, http.StatusForbidden, "Unable to identify caller.")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return JSONError(c, http.StatusTooManyRequests, "Too many requests. Try again in a minute.")
		},
	})
}
