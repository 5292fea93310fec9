package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/observability"
)

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}

// knownEndpoints bounds metric label cardinality for requests chi did not route.
var knownEndpoints = map[string]string{
	"/status":         "/status",
	"/snapshot":       "/snapshot",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
	"/admin/signal":   "/admin/signal",
}

func endpointLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := knownEndpoints[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

// RequestMetrics emits request count, latency and response size for each
// status-server request, and logs it at debug level.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry := observability.TelemetrySystem
		if telemetry == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		endpoint := endpointLabel(r)
		labels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   strconv.Itoa(rec.status),
		}
		_ = telemetry.Counter("http_requests_total", 1, labels)
		_ = telemetry.Histogram("http_request_duration_ms", elapsed, labels)
		_ = telemetry.Gauge("http_response_size_bytes", float64(rec.written), map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
		})
		if rec.status >= http.StatusBadRequest {
			class := "client_error"
			if rec.status >= http.StatusInternalServerError {
				class = "server_error"
			}
			_ = telemetry.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     labels["status"],
				"error_type": class,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Debug("Status request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("response_size", rec.written),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
