//go:build windows

package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/chanx"

	"github.com/axonops/vectorcom/pkg/errors"
)

const eventQueueInitialCapacity = 64

type delivery struct {
	handler EventHandler
	event   Event
}

// Session owns a single-threaded apartment. All COM calls of objects created by the
// session run on its locked OS thread.
type Session struct {
	logger *logrus.Logger

	calls  chan func()
	events *chanx.UnboundedChan[delivery]
	done   chan struct{}
	exited chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool

	// sinks keeps advised sinks reachable while COM holds references to them.
	// Only touched on the apartment thread.
	sinks map[*eventSink]struct{}
}

// NewSession starts the apartment thread and initialises COM on it
func NewSession(logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Session{
		logger: logger,
		calls:  make(chan func()),
		events: chanx.NewUnboundedChan[delivery](context.Background(), eventQueueInitialCapacity),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
		sinks:  make(map[*eventSink]struct{}),
	}

	initErr := make(chan error, 1)
	go s.run(initErr)
	if err := <-initErr; err != nil {
		close(s.events.In)
		return nil, err
	}
	go s.deliver()

	logger.Debug("COM apartment started")
	return s, nil
}

func (s *Session) run(initErr chan<- error) {
	defer close(s.exited)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		// S_FALSE: the thread was already initialised, which still needs a matching uninit
		if !errors.As(err, &oleErr) || oleErr.Code() != hrSFalse {
			initErr <- errors.Wrap(err, "failed to initialize COM apartment")
			return
		}
	}
	defer ole.CoUninitialize()
	initErr <- nil

	for {
		select {
		case fn := <-s.calls:
			fn()
		case <-s.done:
			s.dropSinks()
			return
		}
	}
}

// deliver hands events to their handlers off the apartment thread
func (s *Session) deliver() {
	for d := range s.events.Out {
		d.handler(d.event)
	}
}

// post queues an event. Called on the apartment thread from a sink; the queue is
// unbounded so a slow handler never stalls the apartment.
func (s *Session) post(h EventHandler, ev Event) {
	s.events.In <- delivery{handler: h, event: ev}
}

// do runs fn on the apartment thread and waits for it
func (s *Session) do(fn func() error) error {
	if s.closed.Load() {
		return errors.ErrReleased
	}

	errc := make(chan error, 1)
	call := func() {
		defer func() {
			if r := recover(); r != nil {
				errc <- fmt.Errorf("panic on COM thread: %v", r)
			}
		}()
		errc <- fn()
	}

	select {
	case s.calls <- call:
	case <-s.done:
		return errors.ErrReleased
	}
	return <-errc
}

// CreateObject starts a new instance of the automation server registered as progID
func (s *Session) CreateObject(progID string) (Object, error) {
	var obj Object
	err := s.do(func() error {
		unknown, err := oleutil.CreateObject(progID)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("failed to create %s", progID))
		}
		defer unknown.Release()

		disp, err := unknown.QueryInterface(ole.IID_IDispatch)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s does not support IDispatch", progID))
		}
		obj = s.wrap(disp)
		return nil
	})
	if err == nil {
		s.logger.WithField("prog_id", progID).Debug("Created COM object")
	}
	return obj, err
}

// GetActiveObject attaches to a running instance registered as progID
func (s *Session) GetActiveObject(progID string) (Object, error) {
	var obj Object
	err := s.do(func() error {
		unknown, err := oleutil.GetActiveObject(progID)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("no running instance of %s", progID))
		}
		defer unknown.Release()

		disp, err := unknown.QueryInterface(ole.IID_IDispatch)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%s does not support IDispatch", progID))
		}
		obj = s.wrap(disp)
		return nil
	})
	if err == nil {
		s.logger.WithField("prog_id", progID).Debug("Attached to running COM object")
	}
	return obj, err
}

// PumpWaitingMessages drains the apartment's message queue so that pending COM
// callbacks are delivered
func (s *Session) PumpWaitingMessages() error {
	return s.do(pumpWaitingMessages)
}

// Close unadvises remaining sinks, uninitialises COM and stops event delivery.
// Objects of the session return ErrReleased afterwards.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		<-s.exited
		close(s.events.In)
		s.logger.Debug("COM apartment stopped")
	})
	return nil
}

func (s *Session) dropSinks() {
	for sink := range s.sinks {
		sink.detach()
	}
	s.sinks = nil
}
