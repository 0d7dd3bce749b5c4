package server

import (
	"context"
	"runtime"

	"github.com/warpdl/warpalarm/pkg/alarm"
	"github.com/warpdl/warpalarm/pkg/logger"
)

// Worker is the thread that owns alarms scheduled over RPC. Its goroutine
// does nothing but run their callbacks.
type Worker struct {
	thr    *alarm.Thread
	log    logger.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// StartWorker attaches a new thread to s and starts driving it.
func StartWorker(s *alarm.Scheduler, l logger.Logger) (*Worker, error) {
	if l == nil {
		l = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{log: l, cancel: cancel, done: make(chan struct{})}
	ready := make(chan error, 1)
	go func() {
		defer close(w.done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		thr, err := s.Attach()
		if err != nil {
			ready <- err
			return
		}
		defer thr.Exit()
		w.thr = thr
		ready <- nil

		l.Info("alarm worker running on thread %d (os thread %d)", thr.ID(), thr.OSThread())
		_ = thr.Loop(ctx)
		l.Info("alarm worker on thread %d stopped", thr.ID())
	}()
	if err := <-ready; err != nil {
		cancel()
		return nil, err
	}
	return w, nil
}

// Thread returns the worker's thread.
func (w *Worker) Thread() *alarm.Thread {
	return w.thr
}

// Stop stops the worker and runs its thread-exit hook, which removes every
// alarm it owns. It waits for the worker goroutine to return.
func (w *Worker) Stop() {
	w.cancel()
	<-w.done
}
