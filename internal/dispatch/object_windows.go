//go:build windows

package dispatch

import (
	ole "github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/axonops/vectorcom/pkg/errors"
)

const (
	hrSFalse              = 0x00000001
	hrDispEMemberNotFound = 0x80020003
	hrDispEUnknownName    = 0x80020006
)

// object is an IDispatch pointer owned by a session. disp is only touched on the
// apartment thread.
type object struct {
	session *Session
	disp    *ole.IDispatch
}

func (s *Session) wrap(disp *ole.IDispatch) *object {
	return &object{session: s, disp: disp}
}

func (o *object) Get(name string, args ...any) (any, error) {
	var result any
	err := o.session.do(func() error {
		if o.disp == nil {
			return errors.NewDispatchError(name, "get", errors.ErrReleased)
		}
		v, err := oleutil.GetProperty(o.disp, name, o.toOLE(args)...)
		if err != nil {
			return dispatchError(name, "get", err)
		}
		defer v.Clear()
		result = o.session.fromVariant(v)
		return nil
	})
	return result, err
}

func (o *object) Put(name string, value any) error {
	return o.session.do(func() error {
		if o.disp == nil {
			return errors.NewDispatchError(name, "put", errors.ErrReleased)
		}
		v, err := oleutil.PutProperty(o.disp, name, o.toOLE([]any{value})...)
		if err != nil {
			return dispatchError(name, "put", err)
		}
		v.Clear()
		return nil
	})
}

func (o *object) Call(name string, args ...any) (any, error) {
	var result any
	err := o.session.do(func() error {
		if o.disp == nil {
			return errors.NewDispatchError(name, "call", errors.ErrReleased)
		}
		v, err := oleutil.CallMethod(o.disp, name, o.toOLE(args)...)
		if err != nil {
			return dispatchError(name, "call", err)
		}
		defer v.Clear()
		result = o.session.fromVariant(v)
		return nil
	})
	return result, err
}

func (o *object) Release() error {
	err := o.session.do(func() error {
		if o.disp != nil {
			o.disp.Release()
			o.disp = nil
		}
		return nil
	})
	// A closed session has already torn the apartment down
	if errors.Is(err, errors.ErrReleased) {
		return nil
	}
	return err
}

// toOLE unwraps Objects of the same session so they can be passed as arguments
func (o *object) toOLE(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if inner, ok := a.(*object); ok && inner.session == o.session {
			out[i] = inner.disp
			continue
		}
		out[i] = a
	}
	return out
}

// fromVariant converts a result to a Go value. Dispatch results get their own
// reference because the caller clears v.
func (s *Session) fromVariant(v *ole.VARIANT) any {
	if v == nil {
		return nil
	}
	if v.VT == ole.VT_DISPATCH {
		disp := v.ToIDispatch()
		if disp == nil {
			return nil
		}
		disp.AddRef()
		return s.wrap(disp)
	}
	return v.Value()
}

func dispatchError(member, op string, err error) error {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		switch uint32(oleErr.Code()) {
		case hrDispEUnknownName, hrDispEMemberNotFound:
			return errors.NewDispatchError(member, op, errors.ErrMemberNotFound)
		}
	}
	return errors.NewDispatchError(member, op, err)
}
