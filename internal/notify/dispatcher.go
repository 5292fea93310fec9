package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/metrics"
	"github.com/namelens/domainwatch/internal/observability"
)

// Message is a formatted alert plus the data it was rendered from.
type Message struct {
	Domain  string
	Subject string
	Body    string
	Changes *core.ChangeSet
	Current *core.Snapshot
}

// Outcome is the result of one channel send.
type Outcome struct {
	Channel  string        `json:"channel"`
	Success  bool          `json:"success"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"-"`
}

// DispatchResult holds one outcome per channel in configuration order.
type DispatchResult []Outcome

// Succeeded counts successful sends.
func (r DispatchResult) Succeeded() int {
	n := 0
	for _, o := range r {
		if o.Success {
			n++
		}
	}
	return n
}

// Failed counts failed sends.
func (r DispatchResult) Failed() int {
	return len(r) - r.Succeeded()
}

// Dispatcher fans a message out to every configured channel.
type Dispatcher struct {
	channels []Channel
	logger   *logging.Logger

	// Timeout bounds each channel send. Zero uses DefaultHTTPTimeout.
	Timeout time.Duration

	// MaxParallel limits concurrent sends. Zero means no limit, one sends
	// sequentially.
	MaxParallel int
}

// NewDispatcher returns a dispatcher over channels in the given order.
func NewDispatcher(channels []Channel, logger *logging.Logger) *Dispatcher {
	list := make([]Channel, len(channels))
	copy(list, channels)
	return &Dispatcher{
		channels: list,
		logger:   observability.LoggerOr(logger),
	}
}

// Channels returns the configured channels.
func (d *Dispatcher) Channels() []Channel {
	out := make([]Channel, len(d.channels))
	copy(out, d.channels)
	return out
}

// Len returns the number of configured channels.
func (d *Dispatcher) Len() int {
	return len(d.channels)
}

// DispatchAll sends msg to every channel. A failing, slow or panicking
// channel never affects the others, and the result order always matches the
// channel order.
func (d *Dispatcher) DispatchAll(ctx context.Context, msg Message) DispatchResult {
	results := make(DispatchResult, len(d.channels))

	// Plain group: one channel's error must not cancel its siblings.
	var g errgroup.Group
	if d.MaxParallel > 0 {
		g.SetLimit(d.MaxParallel)
	}

	for i, ch := range d.channels {
		g.Go(func() error {
			results[i] = d.send(ctx, ch, msg)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, msg Message) (outcome Outcome) {
	name := ch.Name()
	outcome.Channel = name
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Err = fmt.Errorf("%s: panic during send: %v", name, r)
		}
		outcome.Duration = time.Since(start)
		metrics.RecordNotification(name, outcome.Success)
		if outcome.Err != nil {
			outcome.Error = outcome.Err.Error()
			d.logger.Error("Notification failed",
				zap.String("channel", name),
				zap.String("domain", msg.Domain),
				zap.Error(outcome.Err))
			return
		}
		d.logger.Info("Notification sent",
			zap.String("channel", name),
			zap.String("domain", msg.Domain),
			zap.Duration("duration", outcome.Duration))
	}()

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ch.Send(sendCtx, msg); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Success = true
	return outcome
}
