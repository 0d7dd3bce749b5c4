package jsrt

import (
	"context"
	"runtime"
	"time"

	"github.com/warpdl/warpalarm/pkg/alarm"
)

// Run attaches a new thread to sched, runs the script at path on it and then
// drives the thread until none of its alarms is armed or ctx is done. The
// thread's alarms are removed when Run returns.
func Run(ctx context.Context, sched *alarm.Scheduler, path string, opts *Options) error {
	// one OS thread for the whole life of the alarm thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	thr, err := sched.Attach()
	if err != nil {
		return err
	}
	defer thr.Exit()

	r, err := New(thr, opts)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		r.Interrupt(ctx.Err())
	})
	defer stop()

	r.l.Debug("jsrt: running %s on thread %d (os thread %d)", path, thr.ID(), thr.OSThread())
	if err := r.RunFile(path); err != nil {
		return err
	}
	return r.Loop(ctx)
}

// Loop runs the thread's alarms as they become due. It returns nil once no
// alarm of the thread is armed, or ctx's error when ctx is done. Callback
// failures are logged and do not stop the loop.
func (r *Runtime) Loop(ctx context.Context) error {
	ticker := time.NewTicker(alarm.PollInterval)
	defer ticker.Stop()
	for r.thr.Armed() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.thr.Wake():
		case <-ticker.C:
		}
		if err := r.thr.SafePoint(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.l.Warning("jsrt: thread %d: %v", r.thr.ID(), err)
		}
	}
	return nil
}
