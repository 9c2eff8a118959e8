// Package middleware provides HTTP middleware for the nextgen ops listener.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pavuchara/nextgen/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader captures the first status code written.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Write records an implicit 200 when WriteHeader was never called.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// route returns the matched chi pattern, or "unmatched" for requests no
// route claimed. Raw paths are never used as metric labels.
func route(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// Logger logs every request with its request ID and observes its duration
// in metrics.HTTPRequestDuration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		rt := route(r)
		metrics.HTTPRequestDuration.
			WithLabelValues(rt, strconv.Itoa(wrapped.statusCode)).
			Observe(elapsed.Seconds())

		slog.Debug("http request",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"route", rt,
			"status", wrapped.statusCode,
			"duration", elapsed.String(),
		)
	})
}
