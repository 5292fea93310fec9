package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (s stubChecker) CheckHealth(context.Context) error {
	return s.err
}

func TestHealthHandlerHealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("monitor", stubChecker{})
	manager.RegisterChecker("store", stubChecker{})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, map[string]string{"monitor": StatusHealthy, "store": StatusHealthy}, resp.Checks)
}

func TestHealthHandlerUnhealthyStore(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("monitor", stubChecker{})
	manager.RegisterChecker("store", stubChecker{err: errors.New("history file unreadable")})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.Equal(t, "aggregate health check failed", resp.Error.Message)

	checks, ok := resp.Error.Details["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, StatusUnhealthy, checks["store"])
	assert.Equal(t, StatusHealthy, checks["monitor"])
	assert.Equal(t, []any{"store"}, resp.Error.Details["unhealthy_checks"])
}

func TestProbesNameTheFailingProbe(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("monitor", stubChecker{err: errors.New("stale")})

	probes := map[string]http.HandlerFunc{
		"liveness":  manager.LivenessHandler,
		"readiness": manager.ReadinessHandler,
		"startup":   manager.StartupHandler,
	}
	for probe, handler := range probes {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health/"+probe, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, probe)
		assert.Contains(t, rec.Body.String(), probe+" probe failed")
	}
}

func TestProbeHealthyBody(t *testing.T) {
	manager := NewHealthManager("dev")

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ProbeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRunChecksAfterDeadline(t *testing.T) {
	manager := NewHealthManager("dev")
	manager.RegisterChecker("store", stubChecker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := manager.runChecks(ctx)
	assert.Equal(t, StatusTimeout, checks["store"])
	assert.Equal(t, StatusDegraded, overallStatus(checks))
}
