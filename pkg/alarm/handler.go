package alarm

import (
	"context"
	"errors"
)

// dispatch runs on t's driver goroutine and fires t's due alarms one at a
// time, earliest first. Each alarm is marked done under the lock before its
// callback is taken, and the callback runs after the lock is released. The
// schedule is rescanned after every callback because the callback may have
// changed it.
func (s *Scheduler) dispatch(ctx context.Context, t *Thread) error {
	var errs []error
	for {
		cb := s.takeDue(t)
		if cb == nil {
			break
		}
		if err := cb.Invoke(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.log.Debug("alarm: thread %d processed pending events; signalling scheduler", t.id)
	s.signal()
	return errors.Join(errs...)
}

// takeDue marks t's earliest due alarm done and returns its callback, or nil
// if t has nothing due.
func (s *Scheduler) takeDue(t *Thread) Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.exited {
		return nil
	}
	ev := s.list.firstDueFor(t, s.clock.Now())
	if ev == nil {
		return nil
	}
	ev.flags |= FlagDone
	ev.flags &^= FlagFired
	cb := ev.cb
	if ev.flags&FlagAutoRemove != 0 {
		s.freeLocked(ev)
	}
	s.log.Debug("alarm: thread %d calling %s", t.id, cb)
	return cb
}
