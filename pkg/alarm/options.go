package alarm

import (
	"fmt"
	"math"
	"time"
)

// Option configures an alarm when it is created.
type Option func(*Flags)

// WithAutoRemove frees the alarm right after it fires. Its handle becomes
// invalid at that point.
func WithAutoRemove(on bool) Option {
	return func(f *Flags) {
		if on {
			*f |= FlagAutoRemove
		} else {
			*f &^= FlagAutoRemove
		}
	}
}

// WithInstall controls whether the alarm is linked into the schedule on
// creation. An alarm created with WithInstall(false) is armed later with
// Scheduler.Install.
func WithInstall(on bool) Option {
	return func(f *Flags) {
		if on {
			*f &^= FlagNoInstall
		} else {
			*f |= FlagNoInstall
		}
	}
}

// ParseOptions converts loosely typed options, as received from scripts or
// RPC clients, into Options. Recognized keys are "remove" and "install", both
// booleans.
func ParseOptions(m map[string]any) ([]Option, error) {
	opts := make([]Option, 0, len(m))
	for k, v := range m {
		b, ok := v.(bool)
		switch k {
		case "remove":
			if !ok {
				return nil, newError(KindArgument, "options", fmt.Errorf("%w: remove=%v", ErrInvalidOption, v))
			}
			opts = append(opts, WithAutoRemove(b))
		case "install":
			if !ok {
				return nil, newError(KindArgument, "options", fmt.Errorf("%w: install=%v", ErrInvalidOption, v))
			}
			opts = append(opts, WithInstall(b))
		default:
			return nil, newError(KindArgument, "options", fmt.Errorf("%w: %q", ErrUnknownOption, k))
		}
	}
	return opts, nil
}

// DeadlineFromSeconds converts fractional seconds since the Unix epoch.
func DeadlineFromSeconds(sec float64) (time.Time, error) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || math.Abs(sec) > maxSeconds {
		return time.Time{}, newError(KindArgument, "time", fmt.Errorf("%w: %v", ErrInvalidTime, sec))
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}

// DelayFromSeconds converts a relative delay in fractional seconds.
func DelayFromSeconds(sec float64) (time.Duration, error) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || math.Abs(sec) > maxDelaySeconds {
		return 0, newError(KindArgument, "time", fmt.Errorf("%w: %v", ErrInvalidTime, sec))
	}
	return time.Duration(sec * float64(time.Second)), nil
}

const (
	maxSeconds      = 1 << 40
	maxDelaySeconds = float64(math.MaxInt64 / int64(time.Second))
)
