package alarm

import (
	"slices"
	"sort"
	"time"
)

// scheduleList keeps linked events sorted ascending by deadline. Events with
// equal deadlines keep insertion order.
type scheduleList struct {
	events []*event
	seq    uint64
}

// insert links ev at its ordered position. It fails if ev is already linked.
func (l *scheduleList) insert(ev *event) error {
	if ev.linked {
		return ErrAlreadyInstalled
	}
	l.seq++
	ev.seq = l.seq
	// ev.seq is the largest, so the insertion point is the first event with a
	// strictly later deadline.
	i := sort.Search(len(l.events), func(i int) bool {
		return l.events[i].at.After(ev.at)
	})
	l.events = slices.Insert(l.events, i, ev)
	ev.linked = true
	return nil
}

// detach unlinks ev without freeing it. Detaching an unlinked event is a no-op.
func (l *scheduleList) detach(ev *event) {
	if !ev.linked {
		return
	}
	i := l.index(ev)
	if i < 0 {
		panic("alarm: linked event missing from schedule")
	}
	l.events = slices.Delete(l.events, i, i+1)
	ev.linked = false
}

func (l *scheduleList) index(ev *event) int {
	i := sort.Search(len(l.events), func(i int) bool {
		return !l.events[i].before(ev)
	})
	if i < len(l.events) && l.events[i] == ev {
		return i
	}
	return -1
}

// scanDue appends to buf every event that is neither done nor fired and whose
// deadline is at or before now. It stops at the first pending event still in
// the future.
func (l *scheduleList) scanDue(now time.Time, buf []*event) []*event {
	for _, ev := range l.events {
		ev.check()
		if ev.flags&(FlagDone|FlagFired) != 0 {
			continue
		}
		if ev.at.After(now) {
			break
		}
		buf = append(buf, ev)
	}
	return buf
}

// nextPending returns the first event that is neither done nor fired.
func (l *scheduleList) nextPending() *event {
	for _, ev := range l.events {
		if ev.flags&(FlagDone|FlagFired) == 0 {
			return ev
		}
	}
	return nil
}

// firstDueFor returns the earliest event owned by t that is not done and is
// either fired or due at now. A fired event was due when the scheduler
// signalled t, so it stays due even if the wall clock has since stepped back.
func (l *scheduleList) firstDueFor(t *Thread, now time.Time) *event {
	for _, ev := range l.events {
		ev.check()
		if ev.owner != t || ev.flags&FlagDone != 0 {
			continue
		}
		if ev.flags&FlagFired != 0 || !ev.at.After(now) {
			return ev
		}
	}
	return nil
}

func (l *scheduleList) len() int {
	return len(l.events)
}

// sorted reports whether the ordering invariant holds.
func (l *scheduleList) sorted() bool {
	for i := 1; i < len(l.events); i++ {
		if !l.events[i-1].before(l.events[i]) {
			return false
		}
	}
	return true
}
