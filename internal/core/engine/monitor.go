// Package engine runs the monitoring cycle: look the domain up, compare the
// result with the stored snapshot, notify on change and persist.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/diff"
	"github.com/namelens/domainwatch/internal/core/lookup"
	"github.com/namelens/domainwatch/internal/core/snapshot"
	"github.com/namelens/domainwatch/internal/core/store"
	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/notify"
	"github.com/namelens/domainwatch/internal/observability"
)

// NextCheckLayout formats the scheduled time of the next check in logs.
const NextCheckLayout = "2006-01-02 15:04:05"

// CycleReport describes one completed monitoring cycle.
type CycleReport struct {
	ID         string                `json:"cycle_id"`
	Domain     string                `json:"domain"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Outcome    string                `json:"outcome"`
	Snapshot   *core.Snapshot        `json:"snapshot,omitempty"`
	Changes    *core.ChangeSet       `json:"changes,omitempty"`
	Dispatch   notify.DispatchResult `json:"dispatch,omitempty"`
	Persisted  bool                  `json:"persisted"`
	LookupErr  error                 `json:"-"`
}

// Monitor watches a single domain.
type Monitor struct {
	Domain     string
	Lookup     lookup.Lookuper
	Normalizer *snapshot.Normalizer
	Store      store.SnapshotStore
	Dispatcher *notify.Dispatcher
	Formatter  notify.Formatter
	Logger     *logging.Logger

	// Interval separates the end of one cycle from the start of the next.
	Interval time.Duration

	// PersistErrorSnapshots stores failed-lookup snapshots as the previous
	// state for the next cycle.
	PersistErrorSnapshots bool

	Clock func() time.Time

	// OnCycle, when set, receives every completed cycle report.
	OnCycle func(CycleReport)
}

func (m *Monitor) validate() error {
	if m == nil {
		return errors.New("monitor is nil")
	}
	if m.Domain == "" {
		return errors.New("monitor domain is required")
	}
	if m.Lookup == nil {
		return errors.New("monitor lookup is required")
	}
	if m.Store == nil {
		return errors.New("monitor store is required")
	}
	return nil
}

// Run executes cycles until ctx is canceled. A cycle that has started runs to
// completion; cancellation is only observed between cycles.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.validate(); err != nil {
		return err
	}
	logger := observability.LoggerOr(m.Logger)

	interval := m.Interval
	if interval <= 0 {
		return errors.New("monitor interval must be positive")
	}

	logger.Info("Starting domain monitor",
		zap.String("domain", m.Domain),
		zap.Duration("interval", interval),
		zap.String("store", m.Store.Location()))

	for {
		if ctx.Err() != nil {
			logger.Info("Domain monitor stopped", zap.String("domain", m.Domain))
			return nil
		}

		if _, err := m.RunCycle(context.WithoutCancel(ctx)); err != nil {
			return err
		}

		next := m.now().Add(interval)
		logger.Info("Next check scheduled",
			zap.String("domain", m.Domain),
			zap.String("next_check", next.Local().Format(NextCheckLayout)))

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

// RunCycle performs a single check. Lookup, channel and storage failures are
// logged and reported, never returned; the error result is reserved for an
// unusable monitor or a canceled context.
func (m *Monitor) RunCycle(ctx context.Context) (CycleReport, error) {
	if err := m.validate(); err != nil {
		return CycleReport{}, err
	}
	logger := observability.LoggerOr(m.Logger)

	report := CycleReport{
		ID:        uuid.NewString(),
		Domain:    m.Domain,
		StartedAt: m.now(),
	}
	cycleField := zap.String("cycle_id", report.ID)
	domainField := zap.String("domain", m.Domain)

	logger.Info("Checking domain status", domainField, cycleField)

	previous, ok, err := m.Store.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load previous snapshot, treating as first check",
			domainField, cycleField, zap.Error(err))
		previous = nil
	} else if !ok {
		previous = nil
	}

	current, err := m.lookup(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		report.LookupErr = err
		current = m.normalizer().ErrorSnapshot(err)
	}
	report.Snapshot = current

	changes := diff.Detect(previous, current)
	report.Changes = changes

	switch {
	case diff.IsLookupError(changes):
		report.Outcome = metrics.OutcomeLookupError
		logger.Error("Domain lookup failed", domainField, cycleField, zap.Error(report.LookupErr))
	case diff.IsFirstRun(changes):
		report.Outcome = metrics.OutcomeFirstRun
		logger.Info("First check, storing baseline snapshot", domainField, cycleField)
	case diff.Actionable(changes):
		report.Outcome = metrics.OutcomeChanged
		logger.Info("Changes detected",
			domainField, cycleField,
			zap.Strings("fields", changes.Keys()),
			zap.Any("changes", changes))
		metrics.RecordChanges(m.Domain, changes.Len())
		report.Dispatch = m.notify(ctx, changes, current)
	default:
		report.Outcome = metrics.OutcomeUnchanged
		logger.Info("No changes detected", domainField, cycleField)
	}

	report.Persisted = m.persist(ctx, current, cycleField)
	report.FinishedAt = m.now()

	metrics.RecordCycle(report.Outcome)
	if m.OnCycle != nil {
		m.OnCycle(report)
	}
	return report, nil
}

func (m *Monitor) lookup(ctx context.Context) (*core.Snapshot, error) {
	start := time.Now()
	record, err := m.Lookup.Lookup(ctx, m.Domain)

	source := "lookup"
	if record != nil && record.Source != "" {
		source = record.Source
	}
	metrics.RecordLookup(source, err == nil, time.Since(start))

	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("lookup returned no record")
	}
	return m.normalizer().Normalize(record), nil
}

func (m *Monitor) notify(ctx context.Context, changes *core.ChangeSet, current *core.Snapshot) notify.DispatchResult {
	logger := observability.LoggerOr(m.Logger)
	if m.Dispatcher == nil || m.Dispatcher.Len() == 0 {
		logger.Warn("Changes detected but no notification channel is enabled", zap.String("domain", m.Domain))
		return nil
	}

	msg := m.Formatter.Compose(m.Domain, changes, current)
	result := m.Dispatcher.DispatchAll(ctx, msg)
	for _, outcome := range result {
		status := "success"
		if !outcome.Success {
			status = "failure"
		}
		logger.Info("Notification result",
			zap.String("domain", m.Domain),
			zap.String("channel", outcome.Channel),
			zap.String("status", status))
	}
	return result
}

func (m *Monitor) persist(ctx context.Context, current *core.Snapshot, cycleField zap.Field) bool {
	logger := observability.LoggerOr(m.Logger)
	if current.IsError() && !m.PersistErrorSnapshots {
		logger.Debug("Keeping previous snapshot after failed lookup", zap.String("domain", m.Domain), cycleField)
		return false
	}
	if err := m.Store.Save(ctx, current); err != nil {
		logger.Error("Failed to save snapshot",
			zap.String("domain", m.Domain),
			zap.String("store", m.Store.Location()),
			cycleField,
			zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) normalizer() *snapshot.Normalizer {
	if m.Normalizer != nil {
		return m.Normalizer
	}
	return &snapshot.Normalizer{Clock: m.Clock}
}

func (m *Monitor) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
