package http

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
)

// RateLimitMiddleware rejects clients that exhausted their bucket with 429.
// It keys on the client IP; chi's RealIP middleware, when installed, has
// already replaced RemoteAddr with the forwarded address.
func RateLimitMiddleware(
	limiter *RateLimiter,
	logger *slog.Logger,
	next http.Handler,
) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ok, retryAfter := limiter.Allow(ip); !ok {
			logger.Warn("rate limit exceeded", "client", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeErrorResponse(w, r, logger, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
