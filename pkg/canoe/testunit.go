package canoe

import (
	"github.com/axonops/vectorcom/internal/dispatch"
)

// TestUnit is a test unit of a test configuration. Caption, Elements, Id and Type
// are missing on some CANoe versions and return ErrNotSupported there.
type TestUnit struct {
	comObject
}

func newTestUnit(obj dispatch.Object) *TestUnit {
	return &TestUnit{comObject{obj}}
}

// Caption returns the caption shown in the test configuration window
func (u *TestUnit) Caption() (string, error) {
	s, err := u.getString("Caption")
	return s, optional("Caption", err)
}

// Elements returns the top level of the unit's test tree
func (u *TestUnit) Elements() (*TestTreeElements, error) {
	obj, err := u.getObject("Elements")
	if err != nil {
		return nil, optional("Elements", err)
	}
	return newTestTreeElements(obj), nil
}

// Enabled reports whether the unit is executed with its test configuration
func (u *TestUnit) Enabled() (bool, error) {
	return u.getBool("Enabled")
}

func (u *TestUnit) SetEnabled(enabled bool) error {
	return u.put("Enabled", enabled)
}

// Id returns the identifier of the unit
func (u *TestUnit) Id() (string, error) {
	s, err := u.getString("Id")
	return s, optional("Id", err)
}

// Name returns the unit name
func (u *TestUnit) Name() (string, error) {
	return u.getString("Name")
}

// Type returns TestTypeUnit on versions that report it
func (u *TestUnit) Type() (TestElementType, error) {
	raw, err := u.getInt("Type")
	if err != nil {
		return 0, optional("Type", err)
	}
	return parseTestElementType(raw)
}

// Verdict returns the verdict of the last execution
func (u *TestUnit) Verdict() (Verdict, error) {
	raw, err := u.getInt("Verdict")
	if err != nil {
		return 0, err
	}
	return parseVerdict(raw)
}

func (u *TestUnit) Release() error {
	return u.obj.Release()
}

// TestUnits is the 1-based collection of a configuration's test units
type TestUnits struct {
	comObject
}

func newTestUnits(obj dispatch.Object) *TestUnits {
	return &TestUnits{comObject{obj}}
}

// Count returns the number of test units
func (c *TestUnits) Count() (int, error) {
	return c.getInt("Count")
}

// Item returns the unit at index, counting from 1
func (c *TestUnits) Item(index int) (*TestUnit, error) {
	obj, err := c.getObject("Item", index)
	if err != nil {
		return nil, err
	}
	return newTestUnit(obj), nil
}

// All returns every test unit in collection order
func (c *TestUnits) All() ([]*TestUnit, error) {
	return collect(c.Count, c.Item)
}

func (c *TestUnits) Release() error {
	return c.obj.Release()
}
