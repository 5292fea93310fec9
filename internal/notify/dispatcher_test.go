package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name  string
	err   error
	delay time.Duration
	panic bool
	calls atomic.Int32
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, _ Message) error {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewCLI("notify-test")
	require.NoError(t, err)
	return logger
}

func TestDispatchAllPreservesOrderAndIsolatesFailures(t *testing.T) {
	a := &stubChannel{name: "a", err: errors.New("smtp down"), delay: 30 * time.Millisecond}
	b := &stubChannel{name: "b"}

	d := NewDispatcher([]Channel{a, b}, testLogger(t))
	result := d.DispatchAll(context.Background(), Message{Domain: "example.com"})

	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].Channel)
	assert.False(t, result[0].Success)
	assert.EqualError(t, result[0].Err, "smtp down")
	assert.Equal(t, "smtp down", result[0].Error)
	assert.Equal(t, "b", result[1].Channel)
	assert.True(t, result[1].Success)
	assert.NoError(t, result[1].Err)

	assert.Equal(t, 1, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
}

func TestDispatchAllRecoversPanics(t *testing.T) {
	bad := &stubChannel{name: "bad", panic: true}
	good := &stubChannel{name: "good"}

	result := NewDispatcher([]Channel{bad, good}, testLogger(t)).DispatchAll(context.Background(), Message{})

	require.Len(t, result, 2)
	assert.False(t, result[0].Success)
	assert.Contains(t, result[0].Error, "panic")
	assert.True(t, result[1].Success)
}

func TestDispatchAllTimesOutSlowChannel(t *testing.T) {
	slow := &stubChannel{name: "slow", delay: time.Second}
	fast := &stubChannel{name: "fast"}

	d := NewDispatcher([]Channel{slow, fast}, testLogger(t))
	d.Timeout = 20 * time.Millisecond

	start := time.Now()
	result := d.DispatchAll(context.Background(), Message{})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, result[0].Success)
	assert.ErrorIs(t, result[0].Err, context.DeadlineExceeded)
	assert.True(t, result[1].Success)
}

func TestDispatchAllSequential(t *testing.T) {
	channels := []Channel{
		&stubChannel{name: "one"},
		&stubChannel{name: "two", err: errors.New("nope")},
		&stubChannel{name: "three"},
	}
	d := NewDispatcher(channels, testLogger(t))
	d.MaxParallel = 1

	result := d.DispatchAll(context.Background(), Message{})
	require.Len(t, result, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{result[0].Channel, result[1].Channel, result[2].Channel})
	assert.Equal(t, 2, result.Succeeded())
	for _, ch := range channels {
		assert.Equal(t, int32(1), ch.(*stubChannel).calls.Load())
	}
}

func TestDispatchAllNoChannels(t *testing.T) {
	result := NewDispatcher(nil, testLogger(t)).DispatchAll(context.Background(), Message{})
	assert.Empty(t, result)
	assert.Equal(t, 0, result.Succeeded())
}
