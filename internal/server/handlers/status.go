package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/engine"
	apperrors "github.com/namelens/domainwatch/internal/errors"
)

// staleGrace is added to twice the check interval before a silent monitor
// is reported unhealthy.
const staleGrace = time.Minute

// SnapshotLoader reads the last persisted snapshot.
type SnapshotLoader interface {
	Load(ctx context.Context) (*core.Snapshot, bool, error)
}

// MonitorStatus tracks the monitor loop for the status endpoints.
type MonitorStatus struct {
	mu       sync.RWMutex
	domain   string
	interval time.Duration
	started  time.Time
	last     *engine.CycleReport
	cycles   int
	store    SnapshotLoader
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Domain    string              `json:"domain"`
	Interval  string              `json:"check_interval"`
	StartedAt time.Time           `json:"started_at"`
	Cycles    int                 `json:"cycles"`
	LastCycle *engine.CycleReport `json:"last_cycle,omitempty"`
}

// NewMonitorStatus creates a tracker for domain.
func NewMonitorStatus(domain string, interval time.Duration, store SnapshotLoader) *MonitorStatus {
	return &MonitorStatus{
		domain:   domain,
		interval: interval,
		started:  time.Now().UTC(),
		store:    store,
	}
}

// Record stores the latest cycle report. It matches engine.Monitor.OnCycle.
func (s *MonitorStatus) Record(report engine.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &report
	s.cycles++
}

// Last returns the latest cycle report.
func (s *MonitorStatus) Last() (engine.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return engine.CycleReport{}, false
	}
	return *s.last, true
}

// CheckHealth reports a monitor that has stopped completing cycles.
func (s *MonitorStatus) CheckHealth(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := s.started
	if s.last != nil {
		since = s.last.FinishedAt
	}
	if s.interval <= 0 {
		return nil
	}
	if limit := 2*s.interval + staleGrace; time.Since(since) > limit {
		return fmt.Errorf("no completed cycle since %s", since.Format(time.RFC3339))
	}
	return nil
}

// StoreChecker reports an unreadable snapshot store.
type StoreChecker struct {
	Store SnapshotLoader
}

// CheckHealth implements HealthChecker.
func (c StoreChecker) CheckHealth(ctx context.Context) error {
	if c.Store == nil {
		return nil
	}
	_, _, err := c.Store.Load(ctx)
	return err
}

// StatusHandler returns the monitored domain and the latest cycle.
func (s *MonitorStatus) StatusHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	response := StatusResponse{
		Domain:    s.domain,
		Interval:  s.interval.String(),
		StartedAt: s.started,
		Cycles:    s.cycles,
		LastCycle: s.last,
	}
	s.mu.RUnlock()

	writeJSON(w, response)
}

// SnapshotHandler returns the last persisted snapshot.
func (s *MonitorStatus) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("snapshot store not configured"))
		return
	}

	snap, ok, err := s.store.Load(r.Context())
	if err != nil {
		respondWithError(w, r, apperrors.WrapStore(r.Context(), err, "failed to load snapshot for "+s.domain))
		return
	}
	if !ok {
		respondWithError(w, r, apperrors.NewNotFoundError("no snapshot stored for "+s.domain))
		return
	}

	writeJSON(w, snap)
}

// Store returns the snapshot source behind /snapshot.
func (s *MonitorStatus) Store() SnapshotLoader {
	return s.store
}
