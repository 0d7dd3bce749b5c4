package alarm

import (
	"context"
	"fmt"
)

// Callback is the work an alarm performs when it fires. Invoke runs on the
// owning thread's driver goroutine, outside the scheduler lock, so it may
// install, uninstall or remove alarms, including its own.
type Callback interface {
	Invoke(ctx context.Context) error
	// String describes the callback in Query output.
	String() string
}

// CallbackFunc adapts a function to Callback.
type CallbackFunc func(ctx context.Context) error

// Invoke calls f(ctx).
func (f CallbackFunc) Invoke(ctx context.Context) error {
	return f(ctx)
}

func (f CallbackFunc) String() string {
	return fmt.Sprintf("func@%p", f)
}

// Named wraps cb so that it is described as name.
func Named(name string, cb Callback) Callback {
	return namedCallback{name: name, Callback: cb}
}

type namedCallback struct {
	name string
	Callback
}

func (n namedCallback) String() string {
	return n.name
}
