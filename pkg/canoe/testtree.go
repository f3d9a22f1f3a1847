package canoe

import (
	"fmt"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/pkg/errors"
)

// TestTreeElement is a node below a test unit or test configuration
type TestTreeElement struct {
	comObject
}

func newTestTreeElement(obj dispatch.Object) *TestTreeElement {
	return &TestTreeElement{comObject{obj}}
}

// Caption returns the text shown for the element in the test tree
func (e *TestTreeElement) Caption() (string, error) {
	return e.getString("Caption")
}

// Enabled reports whether the element is executed
func (e *TestTreeElement) Enabled() (bool, error) {
	return e.getBool("Enabled")
}

// Id returns the identifier from the test module
func (e *TestTreeElement) Id() (string, error) {
	return e.getString("Id")
}

// Title returns the title of a test group or test case
func (e *TestTreeElement) Title() (string, error) {
	return e.getString("Title")
}

func (e *TestTreeElement) SetEnabled(enabled bool) error {
	return e.put("Enabled", enabled)
}

// Elements returns the child elements. Test cases have none.
func (e *TestTreeElement) Elements() (*TestTreeElements, error) {
	obj, err := e.getObject("Elements")
	if err != nil {
		return nil, err
	}
	return newTestTreeElements(obj), nil
}

// Type returns the kind of node
func (e *TestTreeElement) Type() (TestElementType, error) {
	raw, err := e.getInt("Type")
	if err != nil {
		return 0, err
	}
	return parseTestElementType(raw)
}

// Verdict returns the verdict of the last execution
func (e *TestTreeElement) Verdict() (Verdict, error) {
	raw, err := e.getInt("Verdict")
	if err != nil {
		return 0, err
	}
	return parseVerdict(raw)
}

// Release drops the COM reference
func (e *TestTreeElement) Release() error {
	return e.obj.Release()
}

// TestTreeElements is the 1-based collection of child elements
type TestTreeElements struct {
	comObject
}

func newTestTreeElements(obj dispatch.Object) *TestTreeElements {
	return &TestTreeElements{comObject{obj}}
}

// Count returns the number of elements on this level
func (c *TestTreeElements) Count() (int, error) {
	return c.getInt("Count")
}

// Item returns the element at index, counting from 1
func (c *TestTreeElements) Item(index int) (*TestTreeElement, error) {
	obj, err := c.getObject("Item", index)
	if err != nil {
		return nil, err
	}
	return newTestTreeElement(obj), nil
}

// All returns items 1..Count
func (c *TestTreeElements) All() ([]*TestTreeElement, error) {
	return collect(c.Count, c.Item)
}

func (c *TestTreeElements) Release() error {
	return c.obj.Release()
}

// collect walks a 1-based COM collection
func collect[T any](count func() (int, error), item func(int) (T, error)) ([]T, error) {
	n, err := count()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.NewDispatchError("Count", "get", fmt.Errorf("negative count %d", n))
	}
	items := make([]T, 0, n)
	for i := 1; i <= n; i++ {
		it, err := item(i)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
