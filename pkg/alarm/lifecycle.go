package alarm

import (
	"fmt"
	"time"
)

// create allocates an alarm owned by t and installs it unless the options
// say otherwise.
func (s *Scheduler) create(t *Thread, at time.Time, cb Callback, opts []Option) (Handle, error) {
	if cb == nil {
		return Handle{}, newError(KindArgument, "alarm", ErrNilCallback)
	}
	var flags Flags
	for _, o := range opts {
		o(&flags)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Handle{}, newError(KindResource, "alarm", ErrClosed)
	}
	if t.sched != s || t.exited {
		s.mu.Unlock()
		return Handle{}, newError(KindArgument, "alarm", ErrThreadExited)
	}
	if s.maxEvents > 0 && s.arena.live >= s.maxEvents {
		s.mu.Unlock()
		return Handle{}, newError(KindResource, "alarm", fmt.Errorf("%w (limit %d)", ErrTooManyEvents, s.maxEvents))
	}
	ev := s.arena.alloc()
	ev.cb = cb
	ev.owner = t
	ev.at = at
	ev.flags = flags
	h := s.handleOf(ev)

	if flags&FlagNoInstall != 0 {
		s.mu.Unlock()
		return h, nil
	}
	if err := s.installLocked(ev); err != nil {
		// not linked, no one else can reach it yet
		s.arena.release(ev)
		s.mu.Unlock()
		return Handle{}, newError(KindResource, "install", err)
	}
	s.mu.Unlock()
	s.signal()
	return h, nil
}

func (s *Scheduler) handleOf(ev *event) Handle {
	return Handle{sched: s.id, slot: ev.slot, gen: ev.gen}
}

// lookupLocked validates h and returns its event. Caller must hold s.mu.
func (s *Scheduler) lookupLocked(op string, h Handle, kind Kind) (*event, error) {
	if h.IsZero() {
		return nil, newError(kind, op, ErrUnknownHandle)
	}
	if h.sched != s.id {
		return nil, newError(kind, op, ErrForeignHandle)
	}
	ev := s.arena.lookup(h.slot, h.gen)
	if ev == nil {
		return nil, newError(kind, op, ErrStaleHandle)
	}
	return ev, nil
}

// installLocked starts the scheduler if needed and links ev.
// Caller must hold s.mu.
func (s *Scheduler) installLocked(ev *event) error {
	if err := s.startLocked(); err != nil {
		return err
	}
	ev.flags &^= FlagNoInstall
	return s.list.insert(ev)
}

// Install links an alarm created with WithInstall(false), or one that was
// uninstalled, keeping its deadline. Installing a linked alarm fails with a
// permission error.
func (s *Scheduler) Install(h Handle) error {
	s.mu.Lock()
	ev, err := s.lookupLocked("install", h, KindArgument)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if ev.linked {
		s.mu.Unlock()
		return newError(KindPermission, "install", ErrAlreadyInstalled)
	}
	if err := s.installLocked(ev); err != nil {
		s.mu.Unlock()
		return newError(KindResource, "install", err)
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

// Reinstall arms h again at its current deadline, clearing its done state.
// It applies to uninstalled alarms and to fired alarms that were not freed.
func (s *Scheduler) Reinstall(h Handle) error {
	return s.reinstall(h, nil)
}

// ReinstallAt arms h again at a new deadline, clearing its done state. An
// alarm that is still armed is moved to the new deadline.
func (s *Scheduler) ReinstallAt(h Handle, at time.Time) error {
	return s.reinstall(h, &at)
}

// ReinstallAfter is ReinstallAt relative to now.
func (s *Scheduler) ReinstallAfter(h Handle, d time.Duration) error {
	return s.ReinstallAt(h, s.clock.Now().Add(d))
}

func (s *Scheduler) reinstall(h Handle, at *time.Time) error {
	s.mu.Lock()
	ev, err := s.lookupLocked("reinstall", h, KindArgument)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.list.detach(ev)
	ev.flags &^= FlagDone | FlagFired
	if at != nil {
		ev.at = *at
	}
	if err := s.installLocked(ev); err != nil {
		s.mu.Unlock()
		return newError(KindResource, "reinstall", err)
	}
	s.mu.Unlock()
	s.signal()
	return nil
}

// Uninstall unlinks h without freeing it. The alarm keeps its callback and
// can be armed again with Install or Reinstall.
func (s *Scheduler) Uninstall(h Handle) error {
	s.mu.Lock()
	ev, err := s.lookupLocked("uninstall", h, KindArgument)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.list.detach(ev)
	ev.flags &^= FlagDone | FlagFired
	s.mu.Unlock()
	s.signal()
	return nil
}

// Remove unlinks and frees h. Removing an alarm that already fired is not
// an error; its callback is not run again.
func (s *Scheduler) Remove(h Handle) error {
	s.mu.Lock()
	ev, err := s.lookupLocked("remove", h, KindArgument)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.freeLocked(ev)
	s.mu.Unlock()
	s.signal()
	return nil
}

// freeLocked detaches ev and releases its slot. Caller must hold s.mu.
func (s *Scheduler) freeLocked(ev *event) {
	s.list.detach(ev)
	s.arena.release(ev)
}

// Filter selects the alarms reported by Query.
type Filter struct {
	// Handle restricts the result to one alarm. An invalid handle fails
	// the query with a domain error.
	Handle Handle
	// Owner restricts the result to one thread's alarms.
	Owner *Thread
}

// Query returns a snapshot of installed alarms in deadline order. The
// earliest armed alarm of each thread is reported as StatusNext.
func (s *Scheduler) Query(f Filter) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var only *event
	if !f.Handle.IsZero() {
		ev, err := s.lookupLocked("query", f.Handle, KindDomain)
		if err != nil {
			return nil, err
		}
		only = ev
	}

	seen := make(map[*Thread]bool)
	entries := make([]Entry, 0)
	for _, ev := range s.list.events {
		ev.check()
		status := StatusScheduled
		switch {
		case ev.flags&FlagDone != 0:
			status = StatusDone
		case !seen[ev.owner]:
			seen[ev.owner] = true
			status = StatusNext
		}
		if only != nil && ev != only {
			continue
		}
		if f.Owner != nil && ev.owner != f.Owner {
			continue
		}
		entries = append(entries, s.entryOf(ev, status))
	}

	// An uninstalled alarm is still a valid handle; report it on its own.
	if only != nil && !only.linked && (f.Owner == nil || only.owner == f.Owner) {
		status := StatusScheduled
		if only.flags&FlagDone != 0 {
			status = StatusDone
		}
		entries = append(entries, s.entryOf(only, status))
	}
	return entries, nil
}

func (s *Scheduler) entryOf(ev *event, status Status) Entry {
	return Entry{
		At:       ev.at,
		Callback: ev.cb.String(),
		Handle:   s.handleOf(ev),
		Status:   status,
		Thread:   ev.owner.id,
	}
}

// armed counts the installed, unfired alarms owned by t.
func (s *Scheduler) armed(t *Thread) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.list.events {
		if ev.owner == t && ev.armed() {
			n++
		}
	}
	return n
}

// exitThread frees every alarm owned by t, installed or not, without running
// it, and unregisters t.
func (s *Scheduler) exitThread(t *Thread) {
	s.mu.Lock()
	if t.exited {
		s.mu.Unlock()
		return
	}
	var victims []*event
	s.arena.each(func(ev *event) {
		if ev.owner == t {
			victims = append(victims, ev)
		}
	})
	for _, ev := range victims {
		s.log.Debug("alarm: thread %d removing alarm %s at exit", t.id, s.handleOf(ev))
		s.freeLocked(ev)
	}
	t.exited = true
	t.pending.Store(false)
	delete(s.threads, t.id)
	s.freeIDs = append(s.freeIDs, t.id)
	s.mu.Unlock()
	s.signal()
}
