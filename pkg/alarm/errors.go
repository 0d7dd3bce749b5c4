package alarm

import (
	"errors"
	"fmt"
)

// Kind classifies an alarm error.
type Kind uint8

const (
	// KindResource reports exhausted resources (event cap, closed scheduler).
	KindResource Kind = iota + 1
	// KindPermission reports an operation not permitted in the event's state,
	// such as installing an event that is already linked.
	KindPermission
	// KindArgument reports malformed input: bad time values, unknown options,
	// stale or foreign handles.
	KindArgument
	// KindDomain reports a query against a handle that does not denote an alarm.
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindPermission:
		return "permission"
	case KindArgument:
		return "argument"
	case KindDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched by errors.Is against any *Error of that kind.
var (
	ErrResource   = errors.New("resource error")
	ErrPermission = errors.New("permission error")
	ErrArgument   = errors.New("argument error")
	ErrDomain     = errors.New("domain error")
)

var (
	ErrTooManyEvents    = errors.New("too many alarms")
	ErrClosed           = errors.New("scheduler is closed")
	ErrAlreadyInstalled = errors.New("alarm already installed")
	ErrStaleHandle      = errors.New("stale alarm handle")
	ErrForeignHandle    = errors.New("alarm handle belongs to another scheduler")
	ErrUnknownHandle    = errors.New("not an alarm")
	ErrInvalidTime      = errors.New("invalid time value")
	ErrUnknownOption    = errors.New("unknown alarm option")
	ErrInvalidOption    = errors.New("invalid alarm option value")
	ErrNilCallback      = errors.New("nil callback")
	ErrThreadExited     = errors.New("thread has exited")
)

// Error is returned by every fallible Scheduler and Thread operation.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "install".
	Op  string
	Err error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("alarm: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrResource:
		return e.Kind == KindResource
	case ErrPermission:
		return e.Kind == KindPermission
	case ErrArgument:
		return e.Kind == KindArgument
	case ErrDomain:
		return e.Kind == KindDomain
	}
	return false
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}
