package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	apperrors "github.com/namelens/domainwatch/internal/errors"
	"github.com/namelens/domainwatch/internal/server/handlers"
)

type fakeLoader struct {
	snap *core.Snapshot
	err  error
}

func (f fakeLoader) Load(context.Context) (*core.Snapshot, bool, error) {
	return f.snap, f.snap != nil, f.err
}

func serve(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Addr: "127.0.0.1:0"})

	rec := serve(t, srv, "/does-not-exist")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	snap := core.NewSnapshot()
	snap.Set(core.FieldRegistered, core.Bool(true))
	snap.Set(core.FieldRegistrar, core.String("Example Registrar"))

	status := handlers.NewMonitorStatus("example.com", time.Hour, fakeLoader{snap: snap})
	srv := New(Options{Status: status})

	rec := serve(t, srv, "/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"registered":true,"registrar":"Example Registrar"}`, rec.Body.String())
}

func TestSnapshotEndpointWithoutSnapshot(t *testing.T) {
	status := handlers.NewMonitorStatus("example.com", time.Hour, fakeLoader{})
	srv := New(Options{Status: status})

	rec := serve(t, srv, "/snapshot")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotEndpointStoreFailure(t *testing.T) {
	status := handlers.NewMonitorStatus("example.com", time.Hour, fakeLoader{err: errors.New("corrupt")})
	srv := New(Options{Status: status})

	rec := serve(t, srv, "/snapshot")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	// The store check also fails the aggregate health endpoint
	rec = serve(t, srv, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusEndpointReportsLastCycle(t *testing.T) {
	status := handlers.NewMonitorStatus("example.com", time.Hour, fakeLoader{})
	status.Record(engine.CycleReport{
		ID:         "cycle-1",
		Domain:     "example.com",
		Outcome:    "unchanged",
		FinishedAt: time.Now().UTC(),
		Persisted:  true,
	})
	srv := New(Options{Status: status})

	rec := serve(t, srv, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body handlers.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "example.com", body.Domain)
	require.Equal(t, "1h0m0s", body.Interval)
	require.Equal(t, 1, body.Cycles)
	require.NotNil(t, body.LastCycle)
	require.Equal(t, "cycle-1", body.LastCycle.ID)

	rec = serve(t, srv, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminSignalEndpointRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	New(Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.Equal(t, http.StatusNotFound, rec.Code, "not routed without a token")

	srv := New(Options{AdminToken: "s3cret"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)
	require.GreaterOrEqual(t, rec.Code, http.StatusBadRequest, "missing bearer token is rejected")
}

func TestServeAndShutdown(t *testing.T) {
	srv := New(Options{Addr: "127.0.0.1:0"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/version")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, ln.Addr().String(), srv.Addr())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, <-done)
}
