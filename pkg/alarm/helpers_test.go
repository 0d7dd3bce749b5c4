package alarm

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingNotifier records how many notifications each thread received.
type countingNotifier struct {
	mu     sync.Mutex
	counts map[int]int
	inner  Notifier
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{counts: make(map[int]int), inner: InterruptNotifier{}}
}

func (n *countingNotifier) Notify(t *Thread) {
	n.mu.Lock()
	n.counts[t.ID()]++
	n.mu.Unlock()
	n.inner.Notify(t)
}

func (n *countingNotifier) count(id int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[id]
}

// recorder is a callback that records its invocations.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) cb(name string) Callback {
	return Named(name, CallbackFunc(func(context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		return nil
	}))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newTestScheduler(t *testing.T, cfg *Config) *Scheduler {
	t.Helper()
	s := New(cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAttach(t *testing.T, s *Scheduler) *Thread {
	t.Helper()
	thr, err := s.Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return thr
}

// waitWake blocks until thr is woken or the timeout elapses.
func waitWake(t *testing.T, thr *Thread, timeout time.Duration) {
	t.Helper()
	select {
	case <-thr.Wake():
	case <-time.After(timeout):
		t.Fatalf("thread %d was not notified within %v", thr.ID(), timeout)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (s *Scheduler) listSorted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.sorted()
}

func nan() float64 {
	return math.NaN()
}
