package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/namelens/domainwatch/internal/metrics"
)

// Check results and aggregate statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the payload of the live, ready and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is a component that can report its own health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthManager runs the registered checkers for each health endpoint.
type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker adds or replaces the checker reported under name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// runChecks runs checkers in name order. Once ctx expires the remaining
// checks are reported as timed out.
func (hm *HealthManager) runChecks(ctx context.Context) map[string]string {
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}
		start := time.Now()
		err := hm.checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))
		if err != nil {
			checks[name] = StatusUnhealthy
		} else {
			checks[name] = StatusHealthy
		}
	}
	return checks
}

func overallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

// evaluate runs the checks under timeout and answers with an error
// envelope when the aggregate is unhealthy. ok reports whether the caller
// should write its own success body.
func (hm *HealthManager) evaluate(w http.ResponseWriter, r *http.Request, probe string, timeout time.Duration) (string, map[string]string, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.runChecks(ctx)
	status := overallStatus(checks)
	if status != StatusUnhealthy {
		return status, checks, true
	}

	message := "aggregate health check failed"
	if probe != "" {
		message = probe + " probe failed"
	}
	respondWithError(w, r, unhealthyEnvelope(message, probe, checks))
	return status, checks, false
}

// HealthHandler reports every check with the build version.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, checks, ok := hm.evaluate(w, r, "", 5*time.Second)
	if !ok {
		return
	}
	writeJSON(w, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "liveness", 2*time.Second)
}

func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "readiness", 5*time.Second)
}

func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveProbe(w, r, "startup", 3*time.Second)
}

func (hm *HealthManager) serveProbe(w http.ResponseWriter, r *http.Request, probe string, timeout time.Duration) {
	status, _, ok := hm.evaluate(w, r, probe, timeout)
	if !ok {
		return
	}
	writeJSON(w, ProbeResponse{Status: status, Timestamp: time.Now().UTC()})
}

func unhealthyEnvelope(message, probe string, checks map[string]string) *errors.ErrorEnvelope {
	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	details := map[string]interface{}{"status": StatusUnhealthy, "checks": checks}
	ctxData := map[string]interface{}{"status": StatusUnhealthy, "unhealthy_checks": failing}
	if probe != "" {
		details["probe"] = probe
		ctxData["probe"] = probe
	}

	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", message).WithDetails(details)
	envelope, _ = envelope.WithContext(ctxData)
	return envelope
}
