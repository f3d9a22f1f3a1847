package events

import (
	"context"
	"sync/atomic"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/axonops/vectorcom/pkg/errors"
)

// DefaultPollInterval is the sleep between two pumps of the message queue
const DefaultPollInterval = 100 * time.Millisecond

// Flag records whether an asynchronous COM event has fired. The zero value is "finished",
// so waiting on a flag that was never reset returns at once.
type Flag struct {
	pending atomic.Bool
}

// NewFlag creates a flag in the finished state
func NewFlag() *Flag {
	return &Flag{}
}

// Reset marks the event as pending. Call it before triggering the COM method.
func (f *Flag) Reset() {
	f.pending.Store(true)
}

// Set marks the event as finished
func (f *Flag) Set() {
	f.pending.Store(false)
}

// IsSet reports whether the event has finished
func (f *Flag) IsSet() bool {
	return !f.pending.Load()
}

// Pump delivers queued COM callbacks to the current apartment
type Pump interface {
	PumpWaitingMessages() error
}

// WaitOptions tune WaitFinished. A zero Timeout waits until the context ends.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

// WaitFinished pumps messages until flag is set, the timeout elapses or ctx is done
func WaitFinished(ctx context.Context, event string, flag *Flag, pump Pump, opts WaitOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	condition := func(context.Context) (bool, error) {
		if err := pump.PumpWaitingMessages(); err != nil {
			return false, err
		}
		return flag.IsSet(), nil
	}

	var err error
	if opts.Timeout > 0 {
		err = wait.PollUntilContextTimeout(ctx, interval, opts.Timeout, true, condition)
	} else {
		err = wait.PollUntilContextCancel(ctx, interval, true, condition)
	}
	if err == nil {
		return nil
	}

	if wait.Interrupted(err) {
		if cerr := ctx.Err(); cerr != nil && errors.Is(cerr, context.Canceled) {
			return errors.Wrap(cerr, "waiting for "+event)
		}
		return errors.NewEventTimeoutError(event, opts.Timeout, err)
	}
	return errors.Wrap(err, "waiting for "+event)
}
