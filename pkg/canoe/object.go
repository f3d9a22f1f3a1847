package canoe

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/pkg/errors"
)

// comObject adds typed accessors on top of a dispatch.Object
type comObject struct {
	obj dispatch.Object
}

func (c comObject) getString(name string) (string, error) {
	v, err := c.obj.Get(name)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", coerceError(name, err)
	}
	return s, nil
}

func (c comObject) getBool(name string) (bool, error) {
	v, err := c.obj.Get(name)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, coerceError(name, err)
	}
	return b, nil
}

func (c comObject) getInt(name string) (int, error) {
	v, err := c.obj.Get(name)
	if err != nil {
		return 0, err
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, coerceError(name, err)
	}
	return i, nil
}

func (c comObject) getObject(name string, args ...any) (dispatch.Object, error) {
	v, err := c.obj.Get(name, args...)
	if err != nil {
		return nil, err
	}
	return asObject(name, v)
}

func (c comObject) call(name string, args ...any) error {
	_, err := c.obj.Call(name, args...)
	return err
}

func (c comObject) put(name string, value any) error {
	return c.obj.Put(name, value)
}

func asObject(name string, v any) (dispatch.Object, error) {
	obj, ok := v.(dispatch.Object)
	if !ok || obj == nil {
		return nil, errors.NewDispatchError(name, "get", fmt.Errorf("expected an object, got %T", v))
	}
	return obj, nil
}

func coerceError(name string, err error) error {
	return errors.NewDispatchError(name, "get", err)
}

// optional turns a missing member into ErrNotSupported. Failures of other members
// are returned unchanged.
func optional(name string, err error) error {
	if errors.IsMemberNotFound(err, name) {
		return errors.Wrap(errors.ErrNotSupported, name)
	}
	return err
}
