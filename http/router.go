package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loan-calculator/observability"
)

// RouterConfig holds the optional parts of the HTTP surface.
type RouterConfig struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	RateLimiter    *RateLimiter // nil disables rate limiting
	MetricsPath    string       // empty disables the Prometheus endpoint
	HealthCheck    func(ctx context.Context) error
}

// NewRouter mounts the loan API on a chi router.
func NewRouter(loans *LoanHandler, terms *TermRecommendationHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(req.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.MetricsPath != "" {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	r.Route("/api/v1/loans", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(func(next http.Handler) http.Handler {
				return RateLimitMiddleware(cfg.RateLimiter, logger, next)
			})
		}
		r.Post("/calculate", loans.CalculateLoan)
		r.Post("/recommend-term", terms.RecommendTerm)
		r.Get("/{id}", loans.GetLoan)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeErrorResponse(w, req, logger, http.StatusNotFound, "Not Found", "No route for "+req.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeErrorResponse(w, req, logger, http.StatusMethodNotAllowed, "Method Not Allowed",
			req.Method+" is not supported on "+req.URL.Path, nil)
	})

	return r
}

// requestLogger logs each request and records Prometheus request metrics
// keyed by the matched route pattern.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			observability.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			observability.HTTPDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

			logger.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", elapsed,
				"remote", r.RemoteAddr,
			)
		})
	}
}
