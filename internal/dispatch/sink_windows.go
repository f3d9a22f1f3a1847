//go:build windows

package dispatch

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/sirupsen/logrus"

	"github.com/axonops/vectorcom/pkg/errors"
)

const (
	hrSOK          = 0x00000000
	hrENotImpl     = 0x80004001
	hrENoInterface = 0x80004002
	hrEPointer     = 0x80004003
)

type sinkVtbl struct {
	queryInterface   uintptr
	addRef           uintptr
	release          uintptr
	getTypeInfoCount uintptr
	getTypeInfo      uintptr
	getIDsOfNames    uintptr
	invoke           uintptr
}

// NewCallback slots are a finite resource, so the vtable is shared by all sinks
var sinkVtable = &sinkVtbl{
	queryInterface:   syscall.NewCallback(sinkQueryInterface),
	addRef:           syscall.NewCallback(sinkAddRef),
	release:          syscall.NewCallback(sinkRelease),
	getTypeInfoCount: syscall.NewCallback(sinkGetTypeInfoCount),
	getTypeInfo:      syscall.NewCallback(sinkNotImpl4),
	getIDsOfNames:    syscall.NewCallback(sinkNotImpl6),
	invoke:           syscall.NewCallback(sinkInvoke),
}

type dispParams struct {
	args       *ole.VARIANT
	namedArgs  *int32
	argCount   uint32
	namedCount uint32
}

// eventSink is a Go implementation of the source dispinterface. vtbl must stay the
// first field: COM sees a pointer to the struct as the interface pointer.
type eventSink struct {
	vtbl     *sinkVtbl
	refs     atomic.Int32
	iid      ole.GUID
	typeInfo *ole.ITypeInfo
	names    map[int32]string
	session  *Session
	handler  EventHandler
}

func newEventSink(s *Session, iid ole.GUID, ti *ole.ITypeInfo, h EventHandler) *eventSink {
	sink := &eventSink{
		vtbl:     sinkVtable,
		iid:      iid,
		typeInfo: ti,
		names:    make(map[int32]string),
		session:  s,
		handler:  h,
	}
	sink.refs.Store(1)
	s.sinks[sink] = struct{}{}
	return sink
}

func (sink *eventSink) unknown() *ole.IUnknown {
	return (*ole.IUnknown)(unsafe.Pointer(sink))
}

// detach drops the type info and the session's reference. Apartment thread only.
func (sink *eventSink) detach() {
	if sink.typeInfo != nil {
		sink.typeInfo.Release()
		sink.typeInfo = nil
	}
	if sink.session.sinks != nil {
		delete(sink.session.sinks, sink)
	}
}

func (sink *eventSink) name(dispid int32) string {
	if n, ok := sink.names[dispid]; ok {
		return n
	}
	n := fmt.Sprintf("DISPID(%d)", dispid)
	if sink.typeInfo != nil {
		if resolved, ok := memberName(sink.typeInfo, dispid); ok {
			n = resolved
		}
	}
	sink.names[dispid] = n
	return n
}

func sinkFrom(this uintptr) *eventSink {
	return (*eventSink)(unsafe.Pointer(this))
}

func sinkQueryInterface(this uintptr, riid *ole.GUID, ppv *uintptr) uintptr {
	if ppv == nil {
		return hrEPointer
	}
	sink := sinkFrom(this)
	if ole.IsEqualGUID(riid, ole.IID_IUnknown) || ole.IsEqualGUID(riid, ole.IID_IDispatch) ||
		ole.IsEqualGUID(riid, &sink.iid) {
		*ppv = this
		sink.refs.Add(1)
		return hrSOK
	}
	*ppv = 0
	return hrENoInterface
}

func sinkAddRef(this uintptr) uintptr {
	return uintptr(sinkFrom(this).refs.Add(1))
}

func sinkRelease(this uintptr) uintptr {
	sink := sinkFrom(this)
	n := sink.refs.Add(-1)
	if n == 0 {
		sink.detach()
	}
	return uintptr(n)
}

func sinkGetTypeInfoCount(this uintptr, count *uint32) uintptr {
	if count == nil {
		return hrEPointer
	}
	*count = 0
	return hrSOK
}

func sinkNotImpl4(this, a, b, c uintptr) uintptr {
	return hrENotImpl
}

func sinkNotImpl6(this, a, b, c, d, e uintptr) uintptr {
	return hrENotImpl
}

func sinkInvoke(this, dispid, riid, lcid, flags uintptr, params *dispParams, result, excepInfo, argErr uintptr) uintptr {
	sink := sinkFrom(this)
	ev := Event{Name: sink.name(int32(uint32(dispid)))}

	if params != nil && params.argCount > 0 && params.args != nil {
		raw := unsafe.Slice(params.args, params.argCount)
		ev.Args = make([]any, len(raw))
		// DISPPARAMS stores arguments last to first
		for i := range raw {
			ev.Args[len(raw)-1-i] = sink.session.fromVariant(&raw[i])
		}
	}

	sink.session.logger.WithFields(logrus.Fields{
		"event": ev.Name,
		"args":  len(ev.Args),
	}).Trace("COM event fired")

	if sink.handler != nil {
		sink.session.post(sink.handler, ev)
	}
	return hrSOK
}

type subscription struct {
	session *Session
	point   *ole.IConnectionPoint
	cookie  uint32
	sink    *eventSink
	closed  atomic.Bool
}

func (o *object) Subscribe(h EventHandler) (Subscription, error) {
	var sub *subscription
	err := o.session.do(func() error {
		if o.disp == nil {
			return errors.ErrReleased
		}

		ti, iid, err := sourceInterface(o.disp)
		if err != nil {
			return errors.Wrap(errors.ErrEventsUnavailable, err.Error())
		}

		unknown, err := o.disp.QueryInterface(ole.IID_IConnectionPointContainer)
		if err != nil {
			ti.Release()
			return errors.Wrap(errors.ErrEventsUnavailable, err.Error())
		}
		container := (*ole.IConnectionPointContainer)(unsafe.Pointer(unknown))
		defer container.Release()

		var point *ole.IConnectionPoint
		if err := container.FindConnectionPoint(&iid, &point); err != nil {
			ti.Release()
			return errors.Wrap(errors.ErrEventsUnavailable, err.Error())
		}

		sink := newEventSink(o.session, iid, ti, h)
		cookie, err := point.Advise(sink.unknown())
		if err != nil {
			point.Release()
			sinkRelease(uintptr(unsafe.Pointer(sink)))
			return errors.Wrap(err, "failed to advise event sink")
		}

		sub = &subscription{session: o.session, point: point, cookie: cookie, sink: sink}
		o.session.logger.WithField("source_iid", iid.String()).Debug("Subscribed to COM events")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (sub *subscription) Close() error {
	if !sub.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := sub.session.do(func() error {
		err := sub.point.Unadvise(sub.cookie)
		sub.point.Release()
		sinkRelease(uintptr(unsafe.Pointer(sub.sink)))
		return err
	})
	if errors.Is(err, errors.ErrReleased) {
		return nil
	}
	return err
}
