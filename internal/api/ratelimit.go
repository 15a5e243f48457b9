package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/shareboard/shareboard/internal/http/response"
	"github.com/shareboard/shareboard/internal/ratelimit"
)

// RateLimitMiddleware throttles writes per client address. Reads and the event
// stream are never limited. Returns 429 Too Many Requests when the limit is hit.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := clientIP(r)
			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded",
					slog.String("ip", key),
					slog.String("path", r.URL.Path))
				response.TooManyRequests(w, "too many requests, try again later", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. middleware.RealIP has already
// applied forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
