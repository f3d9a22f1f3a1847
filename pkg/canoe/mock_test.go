package canoe

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
	"github.com/axonops/vectorcom/pkg/errors"
)

// MockPump runs queued callbacks when pumped, like a COM message queue would
type MockPump struct {
	mu    sync.Mutex
	queue []func()
	pumps int
	err   error
}

func NewMockPump() *MockPump {
	return &MockPump{}
}

func (p *MockPump) PumpWaitingMessages() error {
	p.mu.Lock()
	p.pumps++
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return err
	}
	queue := p.queue
	p.queue = nil
	p.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return nil
}

func (p *MockPump) enqueue(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, fn)
}

func (p *MockPump) Pumps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pumps
}

// MockObject implements dispatch.Object over maps. Members that have neither a value
// nor an error report ErrMemberNotFound, as IDispatch does.
type MockObject struct {
	mu           sync.Mutex
	pump         *MockPump
	props        map[string]any
	errors       map[string]error
	onCall       map[string][]dispatch.Event
	puts         map[string]any
	calls        []string
	handler      dispatch.EventHandler
	subscribeErr error
	subscribes   int
	unsubscribes int
	released     int
}

func NewMockObject(pump *MockPump) *MockObject {
	return &MockObject{
		pump:   pump,
		props:  make(map[string]any),
		errors: make(map[string]error),
		onCall: make(map[string][]dispatch.Event),
		puts:   make(map[string]any),
	}
}

func memberKey(name string, args []any) string {
	if len(args) == 0 {
		return name
	}
	return fmt.Sprint(name, args)
}

func (m *MockObject) Get(name string, args ...any) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey(name, args)
	if err, exists := m.errors[key]; exists {
		return nil, err
	}
	if v, exists := m.props[key]; exists {
		return v, nil
	}
	return nil, errors.NewDispatchError(name, "get", errors.ErrMemberNotFound)
}

func (m *MockObject) Put(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, exists := m.errors["put "+name]; exists {
		return err
	}
	m.puts[name] = value
	m.props[name] = value
	return nil
}

func (m *MockObject) Call(name string, args ...any) (any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, memberKey(name, args))
	err := m.errors["call "+name]
	fire := m.onCall[name]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	for _, ev := range fire {
		m.Emit(ev)
	}
	return nil, nil
}

func (m *MockObject) Subscribe(h dispatch.EventHandler) (dispatch.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}
	m.subscribes++
	m.handler = h
	return &mockSubscription{obj: m}, nil
}

func (m *MockObject) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

// Set stores a property value; args address indexed properties such as Item
func (m *MockObject) Set(name string, value any, args ...any) *MockObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[memberKey(name, args)] = value
	return m
}

// SetError makes a member fail. Prefix the name with "put " or "call " for
// setters and methods.
func (m *MockObject) SetError(name string, err error) *MockObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[name] = err
	return m
}

// FireOnCall queues events on the pump whenever method is called
func (m *MockObject) FireOnCall(method string, evs ...dispatch.Event) *MockObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCall[method] = append(m.onCall[method], evs...)
	return m
}

// Emit queues ev for delivery at the next pump
func (m *MockObject) Emit(ev dispatch.Event) {
	m.pump.enqueue(func() {
		m.mu.Lock()
		h := m.handler
		m.mu.Unlock()
		if h != nil {
			h(ev)
		}
	})
}

func (m *MockObject) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockObject) GetPut(name string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.puts[name]
	return v, ok
}

func (m *MockObject) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

func (m *MockObject) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler != nil
}

type mockSubscription struct {
	obj *MockObject
}

func (s *mockSubscription) Close() error {
	s.obj.mu.Lock()
	defer s.obj.mu.Unlock()
	s.obj.handler = nil
	s.obj.unsubscribes++
	return nil
}

// MockConnector hands out prepared objects
type MockConnector struct {
	*MockPump
	mu         sync.Mutex
	active     *MockObject
	created    *MockObject
	createErrs []error
	creates    int
	closed     int
}

func NewMockConnector() *MockConnector {
	return &MockConnector{MockPump: NewMockPump()}
}

func (c *MockConnector) GetActiveObject(progID string) (dispatch.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil, errors.NewDispatchError(progID, "attach", errors.New("operation unavailable"))
	}
	return c.active, nil
}

func (c *MockConnector) CreateObject(progID string) (dispatch.Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates++
	if len(c.createErrs) > 0 {
		err := c.createErrs[0]
		c.createErrs = c.createErrs[1:]
		return nil, err
	}
	if c.created == nil {
		return nil, errors.New("class not registered")
	}
	return c.created, nil
}

func (c *MockConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

var testWait = events.WaitOptions{Timeout: 2 * time.Second, Interval: time.Millisecond}

func testEnv(pump *MockPump) *env {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return newEnv(pump, testWait, logger)
}
