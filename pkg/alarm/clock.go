package alarm

import "time"

// Clock supplies the current wall-clock time to the scheduler.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}
