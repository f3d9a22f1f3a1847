// Package dispatch is the late-bound bridge to COM automation servers. Every call is
// forwarded by member name through IDispatch on the owning session's apartment thread.
package dispatch

// Object is a live COM automation object. Results are plain Go values (string, bool,
// integer kinds, float64, nil) or another Object for dispatch-typed members.
type Object interface {
	Get(name string, args ...any) (any, error)
	Put(name string, value any) error
	Call(name string, args ...any) (any, error)
	// Subscribe advises the object's default event source. Events reach h in the
	// order they fired, outside the apartment thread, so h may call back into COM.
	Subscribe(h EventHandler) (Subscription, error)
	Release() error
}

// Event is one callback fired by a COM event source
type Event struct {
	Name string
	Args []any
}

// Arg returns the i-th event argument or nil
func (e Event) Arg(i int) any {
	if i < 0 || i >= len(e.Args) {
		return nil
	}
	return e.Args[i]
}

// EventHandler receives events from a subscription
type EventHandler func(Event)

// Subscription is an advised event sink
type Subscription interface {
	Close() error
}

// Connector creates or attaches automation objects and pumps the apartment's messages.
// *Session is the production implementation.
type Connector interface {
	CreateObject(progID string) (Object, error)
	GetActiveObject(progID string) (Object, error)
	PumpWaitingMessages() error
	Close() error
}
