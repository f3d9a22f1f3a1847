package canoe

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
	"github.com/axonops/vectorcom/pkg/errors"
)

// TestConfigurationHooks are called when the test configuration fires events.
// Nil fields fall back to debug logging.
//
// Hooks run one at a time on the session's event goroutine. A hook must not
// call Start, Stop or Run, or any other method that waits for a COM event:
// that event is queued behind the running hook, so with a zero events timeout
// the wait never ends.
type TestConfigurationHooks struct {
	OnStart          func()
	OnStop           func(reason StopReason)
	OnVerdictChanged func(verdict Verdict)
	OnVerdictFail    func()
}

// TestConfiguration wraps a CANoe test configuration. Caption, Elements, Id,
// PortCreation, Type and Running are missing on older CANoe versions and return
// ErrNotSupported there.
type TestConfiguration struct {
	comObject
	env *env

	started        *events.Flag
	stopped        *events.Flag
	verdictChanged *events.Flag
	verdictFailed  *events.Flag

	mu         sync.Mutex
	hooks      TestConfigurationHooks
	sub        dispatch.Subscription
	stopReason StopReason
	name       string
}

func newTestConfiguration(obj dispatch.Object, e *env) *TestConfiguration {
	return &TestConfiguration{
		comObject:      comObject{obj},
		env:            e,
		started:        events.NewFlag(),
		stopped:        events.NewFlag(),
		verdictChanged: events.NewFlag(),
		verdictFailed:  events.NewFlag(),
	}
}

// Caption returns the caption shown in the CANoe test configuration window
func (tc *TestConfiguration) Caption() (string, error) {
	s, err := tc.getString("Caption")
	return s, optional("Caption", err)
}

// Elements returns the top level of the test tree
func (tc *TestConfiguration) Elements() (*TestTreeElements, error) {
	obj, err := tc.getObject("Elements")
	if err != nil {
		return nil, optional("Elements", err)
	}
	return newTestTreeElements(obj), nil
}

// Enabled reports whether the test configuration takes part in a test run
func (tc *TestConfiguration) Enabled() (bool, error) {
	return tc.getBool("Enabled")
}

func (tc *TestConfiguration) SetEnabled(enabled bool) error {
	return tc.put("Enabled", enabled)
}

// Id returns the identifier CANoe assigned to the test configuration
func (tc *TestConfiguration) Id() (string, error) {
	s, err := tc.getString("Id")
	return s, optional("Id", err)
}

func (tc *TestConfiguration) Name() (string, error) {
	return tc.getString("Name")
}

// PortCreation returns the raw setting that controls whether CANoe creates
// the test ports of this configuration automatically or leaves them to the user
func (tc *TestConfiguration) PortCreation() (int, error) {
	i, err := tc.getInt("PortCreation")
	return i, optional("PortCreation", err)
}

// Running reports whether the test configuration is executing
func (tc *TestConfiguration) Running() (bool, error) {
	b, err := tc.getBool("Running")
	return b, optional("Running", err)
}

// TestUnits returns the test units assigned to the test configuration
func (tc *TestConfiguration) TestUnits() (*TestUnits, error) {
	obj, err := tc.getObject("TestUnits")
	if err != nil {
		return nil, err
	}
	return newTestUnits(obj), nil
}

func (tc *TestConfiguration) Type() (TestElementType, error) {
	raw, err := tc.getInt("Type")
	if err != nil {
		return 0, optional("Type", err)
	}
	return parseTestElementType(raw)
}

// Verdict returns the verdict of the last or current run
func (tc *TestConfiguration) Verdict() (Verdict, error) {
	raw, err := tc.getInt("Verdict")
	if err != nil {
		return 0, err
	}
	return parseVerdict(raw)
}

// SetHooks replaces the event hooks and subscribes to the test configuration
// events, so the hooks also fire for runs started from CANoe itself
func (tc *TestConfiguration) SetHooks(h TestConfigurationHooks) error {
	tc.mu.Lock()
	tc.hooks = h
	tc.mu.Unlock()
	return tc.subscribe()
}

// Start starts the test configuration and waits for OnStart
func (tc *TestConfiguration) Start(ctx context.Context) error {
	if err := tc.subscribe(); err != nil {
		return err
	}
	return tc.env.trigger(ctx, tc.obj, "Start", "OnStart", tc.started)
}

// Stop stops the test configuration and waits for OnStop
func (tc *TestConfiguration) Stop(ctx context.Context) error {
	if err := tc.subscribe(); err != nil {
		return err
	}
	return tc.env.trigger(ctx, tc.obj, "Stop", "OnStop", tc.stopped)
}

// Run starts the test configuration and blocks until it stops on its own.
// It returns the final verdict and the reason reported with OnStop.
func (tc *TestConfiguration) Run(ctx context.Context) (Verdict, StopReason, error) {
	if err := tc.subscribe(); err != nil {
		return 0, 0, err
	}

	tc.stopped.Reset()
	if err := tc.env.trigger(ctx, tc.obj, "Start", "OnStart", tc.started); err != nil {
		tc.stopped.Set()
		return 0, 0, err
	}
	if err := events.WaitFinished(ctx, "OnStop", tc.stopped, tc.env.pump, tc.env.wait); err != nil {
		return 0, 0, err
	}

	tc.mu.Lock()
	reason := tc.stopReason
	tc.mu.Unlock()

	verdict, err := tc.Verdict()
	return verdict, reason, err
}

// Close removes the event subscription
func (tc *TestConfiguration) Close() error {
	tc.mu.Lock()
	sub := tc.sub
	tc.sub = nil
	tc.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

// Release closes the subscription and drops the COM reference
func (tc *TestConfiguration) Release() error {
	if err := tc.Close(); err != nil {
		return err
	}
	return tc.obj.Release()
}

func (tc *TestConfiguration) subscribe() error {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.sub != nil {
		return nil
	}

	sub, err := tc.obj.Subscribe(tc.handleEvent)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to test configuration events")
	}
	tc.sub = sub
	return nil
}

func (tc *TestConfiguration) handleEvent(ev dispatch.Event) {
	tc.mu.Lock()
	hooks := tc.hooks
	tc.mu.Unlock()

	switch ev.Name {
	case "OnStart":
		if hooks.OnStart != nil {
			hooks.OnStart()
		} else {
			tc.logEvent().Debug("Test configuration started")
		}
		tc.started.Set()

	case "OnStop":
		reason, err := parseStopReason(cast.ToInt(ev.Arg(0)))
		if err != nil {
			tc.env.logger.WithError(err).Warn("Test configuration stopped with unknown reason")
		}
		tc.mu.Lock()
		tc.stopReason = reason
		tc.mu.Unlock()
		if hooks.OnStop != nil {
			hooks.OnStop(reason)
		} else {
			tc.logEvent().WithField("reason", reason.String()).Debug("Test configuration stopped")
		}
		tc.stopped.Set()

	case "OnVerdictChanged":
		verdict, err := parseVerdict(cast.ToInt(ev.Arg(0)))
		if err != nil {
			tc.env.logger.WithError(err).Warn("Test configuration reported unknown verdict")
		}
		if hooks.OnVerdictChanged != nil {
			hooks.OnVerdictChanged(verdict)
		} else {
			tc.logEvent().WithField("verdict", verdict.String()).Debug("Test configuration verdict changed")
		}
		tc.verdictChanged.Set()

	case "OnVerdictFail":
		if hooks.OnVerdictFail != nil {
			hooks.OnVerdictFail()
		} else {
			tc.logEvent().Debug("Test configuration failed")
		}
		tc.verdictFailed.Set()

	default:
		tc.env.logger.WithField("event", ev.Name).Trace("Ignoring test configuration event")
	}
}

// logEvent returns a log entry carrying the configuration name. The name is read
// once and cached because events are logged often.
func (tc *TestConfiguration) logEvent() *logrus.Entry {
	tc.mu.Lock()
	name := tc.name
	tc.mu.Unlock()

	if name == "" {
		if n, err := tc.Name(); err == nil {
			name = n
			tc.mu.Lock()
			tc.name = n
			tc.mu.Unlock()
		}
	}
	return tc.env.logger.WithField("test_configuration", name)
}

// TestConfigurations is the 1-based collection of a configuration's test configurations
type TestConfigurations struct {
	comObject
	env *env
}

func newTestConfigurations(obj dispatch.Object, e *env) *TestConfigurations {
	return &TestConfigurations{comObject: comObject{obj}, env: e}
}

// Count returns the number of test configurations
func (c *TestConfigurations) Count() (int, error) {
	return c.getInt("Count")
}

// Item returns the test configuration at index, counting from 1
func (c *TestConfigurations) Item(index int) (*TestConfiguration, error) {
	obj, err := c.getObject("Item", index)
	if err != nil {
		return nil, err
	}
	return newTestConfiguration(obj, c.env), nil
}

// All returns every test configuration in collection order
func (c *TestConfigurations) All() ([]*TestConfiguration, error) {
	return collect(c.Count, c.Item)
}

// ByName returns the first test configuration whose name matches, ignoring case
func (c *TestConfigurations) ByName(name string) (*TestConfiguration, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}

	var found *TestConfiguration
	for _, tc := range all {
		n, err := tc.Name()
		if err == nil && found == nil && strings.EqualFold(n, name) {
			found = tc
			continue
		}
		tc.Release()
	}
	if found == nil {
		return nil, errors.New("test configuration not found: " + name)
	}
	return found, nil
}

func (c *TestConfigurations) Release() error {
	return c.obj.Release()
}
