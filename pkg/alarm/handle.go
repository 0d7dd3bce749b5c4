package alarm

import (
	"fmt"
	"strconv"
	"strings"
)

const handlePrefix = "alarm:"

// Handle is a caller-held reference to an alarm. It does not keep the alarm
// alive: every operation validates it first, and a handle whose alarm has been
// freed is rejected. The zero Handle never denotes an alarm.
type Handle struct {
	sched uint32
	slot  uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// String renders h as "alarm:<scheduler>:<slot>:<generation>".
func (h Handle) String() string {
	return fmt.Sprintf("%s%d:%d:%d", handlePrefix, h.sched, h.slot, h.gen)
}

// MarshalText implements encoding.TextMarshaler.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handle) UnmarshalText(b []byte) error {
	parsed, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHandle parses the String form of a Handle.
func ParseHandle(s string) (Handle, error) {
	rest, ok := strings.CutPrefix(s, handlePrefix)
	if !ok {
		return Handle{}, newError(KindArgument, "parse handle", fmt.Errorf("%w: %q", ErrUnknownHandle, s))
	}
	fields := strings.Split(rest, ":")
	if len(fields) != 3 {
		return Handle{}, newError(KindArgument, "parse handle", fmt.Errorf("%w: %q", ErrUnknownHandle, s))
	}
	var nums [3]uint32
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return Handle{}, newError(KindArgument, "parse handle", fmt.Errorf("%w: %q", ErrUnknownHandle, s))
		}
		nums[i] = uint32(n)
	}
	return Handle{sched: nums[0], slot: nums[1], gen: nums[2]}, nil
}
