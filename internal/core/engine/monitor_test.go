package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/snapshot"
	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/notify"
)

// scriptedLookup returns one scripted response per call, repeating the last.
type scriptedLookup struct {
	mu    sync.Mutex
	steps []lookupStep
	calls int
}

type lookupStep struct {
	record *core.RegistryRecord
	err    error
}

func (s *scriptedLookup) Lookup(context.Context, string) (*core.RegistryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	return step.record, step.err
}

type memoryStore struct {
	snap    *core.Snapshot
	saves   int
	loadErr error
	saveErr error
}

func (m *memoryStore) Load(context.Context) (*core.Snapshot, bool, error) {
	if m.loadErr != nil {
		return nil, false, m.loadErr
	}
	return m.snap, m.snap != nil, nil
}

func (m *memoryStore) Save(_ context.Context, snap *core.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.snap = snap
	return nil
}

func (m *memoryStore) Clear(context.Context) error { m.snap = nil; return nil }
func (m *memoryStore) Location() string            { return "memory" }
func (m *memoryStore) Close() error                { return nil }

type recordingChannel struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (r *recordingChannel) Name() string { return "recorder" }

func (r *recordingChannel) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingChannel) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func registered(registrar string, ns ...string) *core.RegistryRecord {
	return &core.RegistryRecord{
		Fields: map[string]any{
			core.FieldDomainName:  "EXAMPLE.COM",
			core.FieldRegistrar:   registrar,
			core.FieldNameServers: ns,
		},
		RawText: "raw",
		Source:  "rdap",
	}
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewCLI("domainwatch-test")
	require.NoError(t, err)
	return logger
}

func newMonitor(t *testing.T, lookup *scriptedLookup, st *memoryStore, ch *recordingChannel) *Monitor {
	t.Helper()
	logger := testLogger(t)
	clock := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &Monitor{
		Domain:     "example.com",
		Lookup:     lookup,
		Normalizer: &snapshot.Normalizer{Clock: clock},
		Store:      st,
		Dispatcher: notify.NewDispatcher([]notify.Channel{ch}, logger),
		Formatter:  notify.Formatter{Clock: clock},
		Logger:     logger,
		Interval:   time.Hour,
		Clock:      clock,
	}
}

func TestRunCycleFirstRunStoresBaselineWithoutNotifying(t *testing.T) {
	st := &memoryStore{}
	ch := &recordingChannel{}
	m := newMonitor(t, &scriptedLookup{steps: []lookupStep{{record: registered("A", "ns1.example.net")}}}, st, ch)

	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, metrics.OutcomeFirstRun, report.Outcome)
	require.NotEmpty(t, report.ID)
	require.True(t, report.Persisted)
	require.Equal(t, 1, st.saves)
	require.Equal(t, 0, ch.count())
}

func TestRunCycleUnchanged(t *testing.T) {
	st := &memoryStore{}
	ch := &recordingChannel{}
	lookup := &scriptedLookup{steps: []lookupStep{
		{record: registered("A", "ns1.example.net", "ns2.example.net")},
		{record: registered("A", "NS2.example.net", "ns1.example.net")},
	}}
	m := newMonitor(t, lookup, st, ch)

	_, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, metrics.OutcomeUnchanged, report.Outcome)
	require.Equal(t, 0, report.Changes.Len())
	require.Equal(t, 0, ch.count())
	require.Equal(t, 2, st.saves)
}

func TestRunCycleChangeNotifies(t *testing.T) {
	st := &memoryStore{}
	ch := &recordingChannel{}
	lookup := &scriptedLookup{steps: []lookupStep{
		{record: registered("A", "ns1.example.net")},
		{record: registered("B", "ns1.example.net")},
	}}
	m := newMonitor(t, lookup, st, ch)

	_, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, metrics.OutcomeChanged, report.Outcome)
	require.Equal(t, []string{core.FieldRegistrar}, report.Changes.Keys())
	require.Len(t, report.Dispatch, 1)
	require.True(t, report.Dispatch[0].Success)

	require.Equal(t, 1, ch.count())
	msg := ch.messages[0]
	require.Equal(t, "Domain change detected for example.com", msg.Subject)
	require.Contains(t, msg.Body, "registrar:\n  - Before: A\n  - After: B\n")

	stored, _ := st.snap.Get(core.FieldRegistrar)
	require.Equal(t, "B", stored.Str())
}

func TestRunCycleLookupErrorIsSuppressedAndNotPersisted(t *testing.T) {
	st := &memoryStore{}
	ch := &recordingChannel{}
	lookup := &scriptedLookup{steps: []lookupStep{
		{record: registered("A", "ns1.example.net")},
		{err: errors.New("rdap timeout")},
		{record: registered("A", "ns1.example.net")},
	}}
	m := newMonitor(t, lookup, st, ch)

	_, err := m.RunCycle(context.Background())
	require.NoError(t, err)

	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.OutcomeLookupError, report.Outcome)
	require.EqualError(t, report.LookupErr, "rdap timeout")
	require.True(t, report.Snapshot.IsError())
	require.False(t, report.Persisted)
	require.False(t, st.snap.IsError())

	// The recovered lookup is compared with the last good snapshot
	report, err = m.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.OutcomeUnchanged, report.Outcome)
	require.Equal(t, 0, ch.count())
}

func TestRunCyclePersistErrorSnapshots(t *testing.T) {
	st := &memoryStore{}
	m := newMonitor(t, &scriptedLookup{steps: []lookupStep{{err: errors.New("boom")}}}, st, &recordingChannel{})
	m.PersistErrorSnapshots = true

	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	require.True(t, report.Persisted)
	require.True(t, st.snap.IsError())
}

func TestRunCycleStoreFailures(t *testing.T) {
	st := &memoryStore{loadErr: errors.New("corrupt"), saveErr: errors.New("disk full")}
	ch := &recordingChannel{}
	m := newMonitor(t, &scriptedLookup{steps: []lookupStep{{record: registered("A")}}}, st, ch)

	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.OutcomeFirstRun, report.Outcome)
	require.False(t, report.Persisted)
	require.Equal(t, 0, ch.count())
}

func TestRunCycleWithoutChannels(t *testing.T) {
	st := &memoryStore{}
	lookup := &scriptedLookup{steps: []lookupStep{
		{record: registered("A")},
		{record: registered("B")},
	}}
	m := newMonitor(t, lookup, st, &recordingChannel{})
	m.Dispatcher = nil

	_, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	report, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, metrics.OutcomeChanged, report.Outcome)
	require.Nil(t, report.Dispatch)
	require.True(t, report.Persisted)
}

func TestRunCycleRequiresCollaborators(t *testing.T) {
	_, err := (&Monitor{Domain: "example.com"}).RunCycle(context.Background())
	require.Error(t, err)

	_, err = (&Monitor{Lookup: &scriptedLookup{}, Store: &memoryStore{}}).RunCycle(context.Background())
	require.Error(t, err)
}

func TestRunStopsBetweenCycles(t *testing.T) {
	st := &memoryStore{}
	lookup := &scriptedLookup{steps: []lookupStep{{record: registered("A")}}}
	m := newMonitor(t, lookup, st, &recordingChannel{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cycles int
	m.OnCycle = func(CycleReport) {
		cycles++
		cancel()
	}

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
	require.Equal(t, 1, cycles)
	require.Equal(t, 1, st.saves)
}

func TestRunRepeatsOnInterval(t *testing.T) {
	lookup := &scriptedLookup{steps: []lookupStep{{record: registered("A")}}}
	m := newMonitor(t, lookup, &memoryStore{}, &recordingChannel{})
	m.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cycles int
	m.OnCycle = func(CycleReport) {
		cycles++
		if cycles == 3 {
			cancel()
		}
	}

	require.NoError(t, m.Run(ctx))
	require.Equal(t, 3, cycles)
}

func TestRunRejectsNonPositiveInterval(t *testing.T) {
	m := newMonitor(t, &scriptedLookup{steps: []lookupStep{{record: registered("A")}}}, &memoryStore{}, &recordingChannel{})
	m.Interval = 0
	require.Error(t, m.Run(context.Background()))
}
