package alarm

import (
	"fmt"
	"strings"
	"time"
)

// Flags hold the state bits of an event.
type Flags uint32

const (
	// FlagDone marks an event whose callback has been taken for invocation.
	// A done event is never fired again until it is reinstalled.
	FlagDone Flags = 1 << iota
	// FlagAutoRemove frees the event as soon as it fires.
	FlagAutoRemove
	// FlagFired marks a due event whose owner has been notified but has not
	// run it yet. The scheduler does not wait on fired events.
	FlagFired
	// FlagNoInstall creates the event without linking it into the schedule.
	FlagNoInstall
)

func (f Flags) String() string {
	var parts []string
	if f&FlagDone != 0 {
		parts = append(parts, "done")
	}
	if f&FlagAutoRemove != 0 {
		parts = append(parts, "remove")
	}
	if f&FlagFired != 0 {
		parts = append(parts, "fired")
	}
	if f&FlagNoInstall != 0 {
		parts = append(parts, "noinstall")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

const eventMagic = 0x7276ce33

type event struct {
	cb    Callback
	owner *Thread
	at    time.Time
	flags Flags
	// seq orders events with equal deadlines by insertion.
	seq    uint64
	linked bool
	slot   uint32
	gen    uint32
	magic  uint32
}

func (ev *event) check() {
	if ev.magic != eventMagic {
		panic(fmt.Sprintf("alarm: corrupted event in slot %d (magic %#x)", ev.slot, ev.magic))
	}
}

// armed reports whether the event is linked and has not fired yet.
func (ev *event) armed() bool {
	return ev.linked && ev.flags&FlagDone == 0
}

// before reports whether ev sorts before other in the schedule.
func (ev *event) before(other *event) bool {
	if ev.at.Equal(other.at) {
		return ev.seq < other.seq
	}
	return ev.at.Before(other.at)
}

// Status is the state reported for an alarm by Query.
type Status uint8

const (
	// StatusScheduled is an armed alarm that is not its thread's next one.
	StatusScheduled Status = iota
	// StatusNext is the earliest armed alarm of its owning thread.
	StatusNext
	// StatusDone is an alarm that fired and has not been freed.
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusNext:
		return "next"
	case StatusDone:
		return "done"
	default:
		return "scheduled"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Entry is one row of a Query snapshot.
type Entry struct {
	At       time.Time `json:"at"`
	Callback string    `json:"callback"`
	Handle   Handle    `json:"handle"`
	Status   Status    `json:"status"`
	Thread   int       `json:"thread"`
}

// Seconds returns the deadline as fractional seconds since the Unix epoch.
func (e Entry) Seconds() float64 {
	return float64(e.At.UnixNano()) / float64(time.Second)
}
