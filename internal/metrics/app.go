// Package metrics names and emits the monitor's telemetry. Every recorder
// is a no-op until observability.InitMetrics has run.
package metrics

import (
	"strconv"
	"time"

	"github.com/namelens/domainwatch/internal/observability"
)

// Metric names. The exporter prefixes them with the configured namespace.
const (
	MonitorCyclesTotal  = "monitor_cycles_total"
	MonitorChangesTotal = "monitor_changes_total"
	LookupDuration      = "lookup_duration_ms"
	NotificationsTotal  = "notifications_total"

	ServerStartTime     = "app_server_start_time_seconds"
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ErrorsTotal      = "errors_total"
	ErrorsByEndpoint = "errors_by_endpoint"
	PanicsTotal      = "panics_total"
)

// Cycle outcomes used as the outcome label of monitor_cycles_total.
const (
	OutcomeFirstRun    = "first_run"
	OutcomeUnchanged   = "unchanged"
	OutcomeChanged     = "changed"
	OutcomeLookupError = "lookup_error"
)

func counter(name string, value float64, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Counter(name, value, labels)
	}
}

func histogram(name string, d time.Duration, labels map[string]string) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Histogram(name, d, labels)
	}
}

func outcome(ok bool, good, bad string) string {
	if ok {
		return good
	}
	return bad
}

// RecordCycle records a completed monitor cycle.
func RecordCycle(outcome string) {
	counter(MonitorCyclesTotal, 1, map[string]string{"outcome": outcome})
}

// RecordChanges adds the number of changed fields in an actionable cycle.
func RecordChanges(domain string, count int) {
	if count <= 0 {
		return
	}
	counter(MonitorChangesTotal, float64(count), map[string]string{"domain": domain})
}

// RecordLookup records how long a registry lookup took.
func RecordLookup(source string, success bool, duration time.Duration) {
	histogram(LookupDuration, duration, map[string]string{
		"source": source,
		"status": outcome(success, "success", "failure"),
	})
}

// RecordNotification records a single channel delivery attempt.
func RecordNotification(channel string, success bool) {
	counter(NotificationsTotal, 1, map[string]string{
		"channel": channel,
		"status":  outcome(success, "success", "failure"),
	})
}

func RecordHealthCheck(check string, healthy bool, duration time.Duration) {
	counter(HealthCheckTotal, 1, map[string]string{
		"check":  check,
		"status": outcome(healthy, "healthy", "unhealthy"),
	})
	histogram(HealthCheckDuration, duration, map[string]string{"check": check})
}

// SetServerStartTime records when the status server started (Unix seconds).
func SetServerStartTime(timestamp int64) {
	if sys := observability.TelemetrySystem; sys != nil {
		_ = sys.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// RecordError counts an error response by code and HTTP status.
func RecordError(code string, httpStatus int) {
	counter(ErrorsTotal, 1, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(httpStatus),
	})
}

func RecordErrorByEndpoint(endpoint, code string) {
	counter(ErrorsByEndpoint, 1, map[string]string{
		"endpoint":   endpoint,
		"error_code": code,
	})
}

func RecordPanic() {
	counter(PanicsTotal, 1, nil)
}
