package canoe

import (
	"context"
	"sync"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
	"github.com/axonops/vectorcom/pkg/errors"
)

// MeasurementHooks are called when the measurement fires events.
// Nil fields fall back to debug logging.
//
// Hooks run one at a time on the session's event goroutine. A hook must not
// call a method that waits for another event (Start, Stop, StopEx, Run, Open or
// Quit): that event is queued behind the running hook and the wait only ends
// with its context or the configured events timeout.
type MeasurementHooks struct {
	OnInit  func()
	OnStart func()
	OnStop  func()
	OnExit  func()
}

// Measurement controls the CANoe measurement
type Measurement struct {
	comObject
	env *env

	initialized *events.Flag
	started     *events.Flag
	stopped     *events.Flag
	exited      *events.Flag

	mu    sync.Mutex
	hooks MeasurementHooks
	sub   dispatch.Subscription
}

func newMeasurement(obj dispatch.Object, e *env) *Measurement {
	return &Measurement{
		comObject:   comObject{obj},
		env:         e,
		initialized: events.NewFlag(),
		started:     events.NewFlag(),
		stopped:     events.NewFlag(),
		exited:      events.NewFlag(),
	}
}

// AnimationDelay returns the delay in milliseconds between two events in animation mode
func (m *Measurement) AnimationDelay() (int, error) {
	return m.getInt("AnimationDelay")
}

func (m *Measurement) SetAnimationDelay(delay int) error {
	return m.put("AnimationDelay", delay)
}

// MeasurementIndex returns the number of the current measurement, counting
// the measurements started since the configuration was loaded
func (m *Measurement) MeasurementIndex() (int, error) {
	return m.getInt("MeasurementIndex")
}

func (m *Measurement) SetMeasurementIndex(index int) error {
	return m.put("MeasurementIndex", index)
}

// Running reports whether a measurement is in progress
func (m *Measurement) Running() (bool, error) {
	return m.getBool("Running")
}

// SetRunning starts or stops the measurement without waiting for its events
func (m *Measurement) SetRunning(running bool) error {
	return m.put("Running", running)
}

// Animate starts the measurement in animation mode
func (m *Measurement) Animate() error { return m.call("Animate") }

// Break interrupts a running animation
func (m *Measurement) Break() error { return m.call("Break") }

// Reset restarts a measurement in offline mode
func (m *Measurement) Reset() error { return m.call("Reset") }

// Step processes one event in offline mode
func (m *Measurement) Step() error { return m.call("Step") }

// Start starts the measurement and waits for OnStart
func (m *Measurement) Start(ctx context.Context) error {
	if err := m.subscribe(); err != nil {
		return err
	}
	return m.env.trigger(ctx, m.obj, "Start", "OnStart", m.started)
}

// Stop stops the measurement and waits for OnStop
func (m *Measurement) Stop(ctx context.Context) error {
	if err := m.subscribe(); err != nil {
		return err
	}
	return m.env.trigger(ctx, m.obj, "Stop", "OnStop", m.stopped)
}

// StopEx stops the measurement, letting CANoe finish pending stop handlers, and
// waits for OnStop
func (m *Measurement) StopEx(ctx context.Context) error {
	if err := m.subscribe(); err != nil {
		return err
	}
	return m.env.trigger(ctx, m.obj, "StopEx", "OnStop", m.stopped)
}

// SetHooks replaces the event hooks and subscribes to the measurement events,
// so the hooks also fire for measurements started from CANoe itself
func (m *Measurement) SetHooks(h MeasurementHooks) error {
	m.mu.Lock()
	m.hooks = h
	m.mu.Unlock()
	return m.subscribe()
}

// Close removes the event subscription
func (m *Measurement) Close() error {
	m.mu.Lock()
	sub := m.sub
	m.sub = nil
	m.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

// Release closes the subscription and drops the COM reference
func (m *Measurement) Release() error {
	if err := m.Close(); err != nil {
		return err
	}
	return m.obj.Release()
}

func (m *Measurement) subscribe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sub != nil {
		return nil
	}

	sub, err := m.obj.Subscribe(m.handleEvent)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to measurement events")
	}
	m.sub = sub
	return nil
}

func (m *Measurement) handleEvent(ev dispatch.Event) {
	m.mu.Lock()
	hooks := m.hooks
	m.mu.Unlock()

	var hook func()
	var flag *events.Flag
	var message string

	switch ev.Name {
	case "OnInit":
		hook, flag, message = hooks.OnInit, m.initialized, "Initializing measurement ..."
	case "OnStart":
		hook, flag, message = hooks.OnStart, m.started, "Starting measurement ..."
	case "OnStop":
		hook, flag, message = hooks.OnStop, m.stopped, "Stopping measurement ..."
	case "OnExit":
		hook, flag, message = hooks.OnExit, m.exited, "Exiting measurement ..."
	default:
		m.env.logger.WithField("event", ev.Name).Trace("Ignoring measurement event")
		return
	}

	if hook != nil {
		hook()
	} else {
		m.env.logger.Debug(message)
	}
	flag.Set()
}
