package alarm

import (
	"context"
	"sync/atomic"
	"time"
)

// Thread is an owning thread: the single goroutine that arms alarms and runs
// them. Every alarm created through a Thread fires on that thread when its
// driver goroutine calls SafePoint.
type Thread struct {
	sched    *Scheduler
	id       int
	osThread int
	wake     chan struct{}
	pending  atomic.Bool
	// exited is guarded by sched.mu.
	exited bool
}

// ID returns the logical thread id. Ids of exited threads are reused.
func (t *Thread) ID() int {
	return t.id
}

// OSThread returns the platform thread id recorded at Attach time, or 0 where
// it is not available. It is only stable if the driver goroutine locked its
// OS thread before attaching.
func (t *Thread) OSThread() int {
	return t.osThread
}

// Scheduler returns the scheduler t is attached to.
func (t *Thread) Scheduler() *Scheduler {
	return t.sched
}

// Wake returns a channel that receives a value when the thread is notified
// by an InterruptNotifier. Driver loops select on it and call SafePoint.
func (t *Thread) Wake() <-chan struct{} {
	return t.wake
}

// Pending reports whether a notification is waiting to be handled.
func (t *Thread) Pending() bool {
	return t.pending.Load()
}

// SafePoint runs every due alarm of t if t has been notified. It must only be
// called from t's driver goroutine. Errors returned by callbacks are joined
// and returned after all due alarms ran.
func (t *Thread) SafePoint(ctx context.Context) error {
	if !t.pending.Swap(false) {
		return nil
	}
	return t.sched.dispatch(ctx, t)
}

// PollInterval is how often Loop checks for notifications that were raised
// without a wake-up, as a PollNotifier does.
const PollInterval = 50 * time.Millisecond

// Loop drives t until ctx is done, running alarms whenever it is woken.
// It is the driver for threads that do nothing but run alarms. Callback
// errors are logged.
func (t *Thread) Loop(ctx context.Context) error {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.wake:
		case <-ticker.C:
		}
		if err := t.SafePoint(ctx); err != nil {
			t.sched.log.Warning("alarm: thread %d: %v", t.id, err)
		}
	}
}

// After arms cb to fire d from now.
func (t *Thread) After(d time.Duration, cb Callback, opts ...Option) (Handle, error) {
	return t.sched.create(t, t.sched.clock.Now().Add(d), cb, opts)
}

// At arms cb to fire at the absolute time at.
func (t *Thread) At(at time.Time, cb Callback, opts ...Option) (Handle, error) {
	return t.sched.create(t, at, cb, opts)
}

// AfterSeconds is After with a delay in fractional seconds.
func (t *Thread) AfterSeconds(sec float64, cb Callback, opts ...Option) (Handle, error) {
	d, err := DelayFromSeconds(sec)
	if err != nil {
		return Handle{}, err
	}
	return t.After(d, cb, opts...)
}

// AtSeconds is At with fractional seconds since the Unix epoch.
func (t *Thread) AtSeconds(sec float64, cb Callback, opts ...Option) (Handle, error) {
	at, err := DeadlineFromSeconds(sec)
	if err != nil {
		return Handle{}, err
	}
	return t.At(at, cb, opts...)
}

// Alarms returns a snapshot of the alarms owned by t.
func (t *Thread) Alarms() ([]Entry, error) {
	return t.sched.Query(Filter{Owner: t})
}

// Armed returns the number of installed alarms of t that have not fired.
func (t *Thread) Armed() int {
	return t.sched.armed(t)
}

// Exit is the thread-exit hook. It frees every alarm owned by t without
// running it and unregisters t. Exit is idempotent.
func (t *Thread) Exit() {
	t.sched.exitThread(t)
}
