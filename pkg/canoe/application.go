// Package canoe wraps the CANoe COM automation object model. Each type forwards to
// one COM object; methods that trigger asynchronous COM events block until the event
// fires, pumping the apartment's message queue while they wait.
package canoe

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
	"github.com/axonops/vectorcom/pkg/errors"
)

// ApplicationHooks are called when the application fires events.
// Nil fields fall back to debug logging.
//
// Hooks run one at a time on the session's event goroutine, so a hook must not
// call Open, Quit or any other method that waits for a COM event. That event
// sits in the queue behind the running hook.
type ApplicationHooks struct {
	OnOpen func(fullName string)
	OnQuit func()
}

// Application is the CANoe.Application automation object
type Application struct {
	comObject
	env     *env
	session dispatch.Connector

	opened *events.Flag
	quit   *events.Flag

	mu     sync.Mutex
	hooks  ApplicationHooks
	sub    dispatch.Subscription
	closed bool
}

// NewApplication wraps an already created application object and subscribes to its
// events. pump must deliver the callbacks of obj's apartment.
func NewApplication(obj dispatch.Object, pump events.Pump, wait events.WaitOptions, logger *logrus.Logger) (*Application, error) {
	app := &Application{
		comObject: comObject{obj},
		env:       newEnv(pump, wait, logger),
		opened:    events.NewFlag(),
		quit:      events.NewFlag(),
	}

	sub, err := obj.Subscribe(app.handleEvent)
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to application events")
	}
	app.sub = sub
	return app, nil
}

// FullName returns the full path of the CANoe executable
func (a *Application) FullName() (string, error) {
	return a.getString("FullName")
}

// Name returns the application name, usually "CANoe"
func (a *Application) Name() (string, error) {
	return a.getString("Name")
}

// Path returns the directory the CANoe executable was started from
func (a *Application) Path() (string, error) {
	return a.getString("Path")
}

// Visible reports whether the CANoe main window is shown
func (a *Application) Visible() (bool, error) {
	return a.getBool("Visible")
}

// SetVisible shows or hides the CANoe main window
func (a *Application) SetVisible(visible bool) error {
	return a.put("Visible", visible)
}

// Version returns the version object of the running CANoe build
func (a *Application) Version() (*Version, error) {
	obj, err := a.getObject("Version")
	if err != nil {
		return nil, err
	}
	return newVersion(obj), nil
}

// Configuration returns the currently loaded configuration
func (a *Application) Configuration() (*Configuration, error) {
	obj, err := a.getObject("Configuration")
	if err != nil {
		return nil, err
	}
	return newConfiguration(obj, a.env), nil
}

// Measurement returns the measurement of the loaded configuration. Hooks fire
// once SetHooks has subscribed to its events.
func (a *Application) Measurement() (*Measurement, error) {
	obj, err := a.getObject("Measurement")
	if err != nil {
		return nil, err
	}
	return newMeasurement(obj, a.env), nil
}

// SetHooks replaces the event hooks
func (a *Application) SetHooks(h ApplicationHooks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = h
}

type openOptions struct {
	autoSave   *bool
	promptUser *bool
}

// OpenOption tunes Open
type OpenOption func(*openOptions)

// WithAutoSave saves the current configuration before the new one is loaded
func WithAutoSave(autoSave bool) OpenOption {
	return func(o *openOptions) { o.autoSave = &autoSave }
}

// WithPromptUser lets CANoe ask the user before discarding unsaved changes
func WithPromptUser(promptUser bool) OpenOption {
	return func(o *openOptions) { o.promptUser = &promptUser }
}

// openArgs builds the positional arguments of Open. PromptUser follows AutoSave, so
// setting it alone also passes AutoSave=false.
func openArgs(path string, opts ...OpenOption) []any {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	args := []any{path}
	switch {
	case o.promptUser != nil:
		autoSave := false
		if o.autoSave != nil {
			autoSave = *o.autoSave
		}
		args = append(args, autoSave, *o.promptUser)
	case o.autoSave != nil:
		args = append(args, *o.autoSave)
	}
	return args
}

// Open loads the configuration at path and waits for OnOpen
func (a *Application) Open(ctx context.Context, path string, opts ...OpenOption) error {
	a.env.logger.WithField("path", path).Info("Opening configuration")
	return a.env.trigger(ctx, a.obj, "Open", "OnOpen", a.opened, openArgs(path, opts...)...)
}

// Quit closes CANoe and waits for OnQuit. The application object is released
// afterwards; Close still has to be called to stop the session.
func (a *Application) Quit(ctx context.Context) error {
	a.env.logger.Info("Quitting CANoe")
	if err := a.env.trigger(ctx, a.obj, "Quit", "OnQuit", a.quit); err != nil {
		return err
	}
	return a.release()
}

// Close drops the subscription and the COM reference and stops the session that
// Connect created. It does not quit CANoe.
func (a *Application) Close() error {
	err := a.release()

	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()

	if session != nil {
		if cerr := session.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (a *Application) release() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	sub := a.sub
	a.sub = nil
	a.mu.Unlock()

	var err error
	if sub != nil {
		err = sub.Close()
	}
	if rerr := a.obj.Release(); err == nil {
		err = rerr
	}
	return err
}

func (a *Application) handleEvent(ev dispatch.Event) {
	a.mu.Lock()
	hooks := a.hooks
	a.mu.Unlock()

	switch ev.Name {
	case "OnOpen":
		fullName := cast.ToString(ev.Arg(0))
		if hooks.OnOpen != nil {
			hooks.OnOpen(fullName)
		} else {
			a.env.logger.WithField("configuration", fullName).Debug("Configuration opened")
		}
		a.opened.Set()
	case "OnQuit":
		if hooks.OnQuit != nil {
			hooks.OnQuit()
		} else {
			a.env.logger.Debug("Closing CANoe ...")
		}
		a.quit.Set()
	default:
		a.env.logger.WithField("event", ev.Name).Trace("Ignoring application event")
	}
}
