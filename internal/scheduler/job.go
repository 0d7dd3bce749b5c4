package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/warpdl/warpalarm/pkg/alarm"
)

// Job is a recurring alarm.
type Job struct {
	sched   *alarm.Scheduler
	expr    string
	cb      alarm.Callback
	handle  alarm.Handle
	runs    atomic.Int64
	stopped atomic.Bool
}

// Every arms cb on thr at every occurrence of expr. The first run is the
// first occurrence after the current time of thr's scheduler.
func Every(thr *alarm.Thread, expr string, cb alarm.Callback) (*Job, error) {
	if cb == nil {
		return nil, fmt.Errorf("scheduler: %w", alarm.ErrNilCallback)
	}
	if err := Validate(expr); err != nil {
		return nil, err
	}
	s := thr.Scheduler()
	now := s.Now()
	if !hasOccurrenceWithinYear(expr, now) {
		return nil, fmt.Errorf("%w: %q", ErrNoOccurrence, expr)
	}
	next, err := NextOccurrence(expr, now)
	if err != nil {
		return nil, err
	}
	j := &Job{sched: s, expr: expr, cb: cb}
	// The handle must be known before the alarm can fire, since the callback
	// reinstalls it.
	h, err := thr.At(next, j, alarm.WithInstall(false))
	if err != nil {
		return nil, err
	}
	j.handle = h
	if err := s.Install(h); err != nil {
		_ = s.Remove(h)
		return nil, err
	}
	return j, nil
}

// Handle returns the handle of the underlying alarm.
func (j *Job) Handle() alarm.Handle {
	return j.handle
}

// Expr returns the cron expression.
func (j *Job) Expr() string {
	return j.expr
}

// Runs returns how many times the callback ran.
func (j *Job) Runs() int64 {
	return j.runs.Load()
}

// Invoke runs the wrapped callback and rearms the alarm at the next
// occurrence. It implements alarm.Callback.
func (j *Job) Invoke(ctx context.Context) error {
	j.runs.Add(1)
	err := j.cb.Invoke(ctx)
	if j.stopped.Load() {
		return err
	}
	next, nerr := NextOccurrence(j.expr, j.sched.Now())
	if nerr != nil {
		return errors.Join(err, nerr)
	}
	if rerr := j.sched.ReinstallAt(j.handle, next); rerr != nil {
		// removed from under us (thread exit, scheduler close)
		if errors.Is(rerr, alarm.ErrStaleHandle) {
			j.stopped.Store(true)
			return err
		}
		return errors.Join(err, rerr)
	}
	return err
}

func (j *Job) String() string {
	return fmt.Sprintf("every(%s, %s)", j.expr, j.cb)
}

// Stop removes the job. It is safe to call from the job's own callback and
// more than once.
func (j *Job) Stop() error {
	if j.stopped.Swap(true) {
		return nil
	}
	err := j.sched.Remove(j.handle)
	if errors.Is(err, alarm.ErrStaleHandle) {
		return nil
	}
	return err
}
