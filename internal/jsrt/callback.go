package jsrt

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// jsCallback is a JavaScript function used as an alarm callback. It is always
// invoked in the runtime that created it.
type jsCallback struct {
	fn   goja.Callable
	name string
}

func newCallback(vm *goja.Runtime, v goja.Value) (*jsCallback, bool) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, false
	}
	name := "<anonymous>"
	if n := v.ToObject(vm).Get("name"); n != nil && n.String() != "" {
		name = n.String()
	}
	return &jsCallback{fn: fn, name: name}, true
}

// Invoke calls the function even when ctx is done: the alarm is already
// consumed, so this is its only attempt. A cancelled Run interrupts the
// runtime, which makes the call fail with an interrupt error instead.
func (c *jsCallback) Invoke(_ context.Context) error {
	if _, err := c.fn(goja.Undefined()); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return nil
}

func (c *jsCallback) String() string {
	return c.name
}
