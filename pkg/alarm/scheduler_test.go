package alarm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warpdl/warpalarm/pkg/logger"
)

func TestSchedulerStartsLazily(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)

	if s.Running() {
		t.Fatal("scheduler should not run before the first install")
	}
	if _, err := thr.After(time.Hour, CallbackFunc(func(context.Context) error { return nil }), WithInstall(false)); err != nil {
		t.Fatalf("After: %v", err)
	}
	if s.Running() {
		t.Fatal("creating an uninstalled alarm should not start the scheduler")
	}
	if _, err := thr.After(time.Hour, CallbackFunc(func(context.Context) error { return nil })); err != nil {
		t.Fatalf("After: %v", err)
	}
	if !s.Running() {
		t.Fatal("install should start the scheduler")
	}
}

func TestScheduleAfterFiresOnOwningThread(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	rec := &recorder{}

	h, err := thr.AfterSeconds(0.05, rec.cb("cb1"))
	if err != nil {
		t.Fatalf("AfterSeconds: %v", err)
	}

	entries, err := thr.Alarms()
	if err != nil {
		t.Fatalf("Alarms: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != StatusNext || entries[0].Handle != h {
		t.Fatalf("expected one next entry, got %+v", entries)
	}
	if entries[0].Callback != "cb1" {
		t.Fatalf("unexpected callback descriptor %q", entries[0].Callback)
	}

	waitWake(t, thr, 2*time.Second)
	if len(rec.snapshot()) != 0 {
		t.Fatal("callback must not run before the safe point")
	}
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != "cb1" {
		t.Fatalf("expected cb1 to run once, got %v", got)
	}

	entries, err = s.Query(Filter{Handle: h})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != StatusDone {
		t.Fatalf("expected the fired alarm to be done, got %+v", entries)
	}
}

func TestAutoRemoveInvalidatesHandle(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	rec := &recorder{}

	h, err := thr.AfterSeconds(0.02, rec.cb("once"), WithAutoRemove(true))
	if err != nil {
		t.Fatalf("AfterSeconds: %v", err)
	}
	waitWake(t, thr, 2*time.Second)
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	// a second safe point finds nothing left to run
	_ = thr.SafePoint(context.Background())

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected exactly one invocation, got %v", got)
	}
	if err := s.Remove(h); !errors.Is(err, ErrStaleHandle) || !errors.Is(err, ErrArgument) {
		t.Fatalf("expected stale handle argument error, got %v", err)
	}
	if _, err := s.Query(Filter{Handle: h}); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected domain error from query, got %v", err)
	}
	if st := s.Stats(); st.Allocated != 0 {
		t.Fatalf("expected no allocated alarms, got %d", st.Allocated)
	}
}

func TestRemoveBeforeDeadlineNeverFires(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	rec := &recorder{}

	h, err := thr.After(80*time.Millisecond, rec.cb("cancelled"))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if err := s.Remove(h); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if thr.Pending() {
		t.Fatal("thread should not be notified for a removed alarm")
	}
	_ = thr.SafePoint(context.Background())
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("removed alarm fired: %v", got)
	}
}

func TestUninstallAwaitedAlarm(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	rec := &recorder{}

	awaited, err := thr.After(60*time.Millisecond, rec.cb("awaited"))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if _, err := thr.After(120*time.Millisecond, rec.cb("later")); err != nil {
		t.Fatalf("After: %v", err)
	}
	waitFor(t, time.Second, func() bool { return s.Stats().Running })
	if err := s.Uninstall(awaited); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}

	waitWake(t, thr, time.Second)
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != "later" {
		t.Fatalf("expected only the later alarm, got %v", got)
	}

	entries, err := s.Query(Filter{Handle: awaited})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != StatusScheduled {
		t.Fatalf("uninstalled alarm should stay scheduled, got %+v", entries)
	}

	if err := s.Install(awaited); err != nil {
		t.Fatalf("Install: %v", err)
	}
	waitWake(t, thr, time.Second)
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if got := rec.snapshot(); len(got) != 2 || got[1] != "awaited" {
		t.Fatalf("reinstalled alarm did not fire, got %v", got)
	}
}

func TestOneNotificationPerThreadPerPass(t *testing.T) {
	clock := newFakeClock()
	notifier := newCountingNotifier()
	// No install goes through the public API, so the scheduler goroutine never
	// runs and passes are driven by hand.
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: notifier})
	thr := mustAttach(t, s)
	other := mustAttach(t, s)
	rec := &recorder{}

	link := func(owner *Thread, name string, at time.Time) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ev := s.arena.alloc()
		ev.owner, ev.cb, ev.at = owner, rec.cb(name), at
		if err := s.list.insert(ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	now := clock.Now()
	link(thr, "second", now.Add(-time.Second))
	link(thr, "first", now.Add(-2*time.Second))
	link(other, "other", now.Add(-time.Second))
	link(thr, "later", now.Add(time.Minute))

	var due []*event
	_, next := s.pass(&due)
	if next == nil || !next.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected to wait for the future alarm, got %v", next)
	}
	if n := notifier.count(thr.ID()); n != 1 {
		t.Fatalf("thread with two due alarms got %d notifications", n)
	}
	if n := notifier.count(other.ID()); n != 1 {
		t.Fatalf("other thread got %d notifications", n)
	}

	// fired alarms are not notified again on the next pass
	s.pass(&due)
	if n := notifier.count(thr.ID()); n != 1 {
		t.Fatalf("fired alarms were notified again: %d", n)
	}

	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if got := rec.snapshot(); len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("expected first then second, got %v", got)
	}
}

func TestFiredAlarmSurvivesClockStepBack(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	at := clock.Now().Add(-time.Second)
	s.mu.Lock()
	ev := s.arena.alloc()
	ev.owner, ev.cb, ev.at = thr, rec.cb("stepped"), at
	if err := s.list.insert(ev); err != nil {
		s.mu.Unlock()
		t.Fatalf("insert: %v", err)
	}
	s.mu.Unlock()

	var due []*event
	s.pass(&due)
	if !thr.Pending() {
		t.Fatal("owner of the due alarm was not notified")
	}

	// wall clock steps back between the pass and the safe point
	clock.Advance(-3 * time.Second)
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != "stepped" {
		t.Fatalf("expected the fired alarm to run once, got %v", got)
	}

	clock.Advance(10 * time.Second)
	for i := 0; i < 3; i++ {
		s.pass(&due)
		if err := thr.SafePoint(context.Background()); err != nil {
			t.Fatalf("SafePoint: %v", err)
		}
	}
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("alarm ran %d times", len(got))
	}
}

func TestQueryStatuses(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	a := mustAttach(t, s)
	b := mustAttach(t, s)
	rec := &recorder{}

	a1, _ := a.After(time.Second, rec.cb("a1"))
	a2, _ := a.After(2*time.Second, rec.cb("a2"))
	b1, _ := b.After(3*time.Second, rec.cb("b1"))
	b2, _ := b.After(4*time.Second, rec.cb("b2"))

	clock.Advance(1500 * time.Millisecond)
	if err := s.dispatch(context.Background(), a); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	entries, err := s.Query(Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := map[Handle]Status{a1: StatusDone, a2: StatusNext, b1: StatusNext, b2: StatusScheduled}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	nexts := make(map[int]int)
	for i, e := range entries {
		if e.Status != want[e.Handle] {
			t.Errorf("%s: status %v, want %v", e.Callback, e.Status, want[e.Handle])
		}
		if e.Status == StatusNext {
			nexts[e.Thread]++
		}
		if i > 0 && e.At.Before(entries[i-1].At) {
			t.Error("entries are not in deadline order")
		}
	}
	if nexts[a.ID()] != 1 || nexts[b.ID()] != 1 {
		t.Fatalf("expected one next entry per thread, got %v", nexts)
	}

	own, err := b.Alarms()
	if err != nil {
		t.Fatalf("Alarms: %v", err)
	}
	if len(own) != 2 || own[0].Handle != b1 || own[1].Handle != b2 {
		t.Fatalf("thread query should only list its own alarms, got %+v", own)
	}
}

func TestRemoveDoneAlarm(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	var calls atomic.Int32

	h, err := thr.After(time.Second, CallbackFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	clock.Advance(2 * time.Second)
	_ = s.dispatch(context.Background(), thr)

	if err := s.Remove(h); err != nil {
		t.Fatalf("Remove of a done alarm: %v", err)
	}
	_ = s.dispatch(context.Background(), thr)
	if calls.Load() != 1 {
		t.Fatalf("expected one invocation, got %d", calls.Load())
	}
	if err := s.Remove(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("second remove should report a stale handle, got %v", err)
	}
}

func TestUninstallAndReinstall(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	h, err := thr.After(time.Second, rec.cb("tick"))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if err := s.Install(h); !errors.Is(err, ErrPermission) {
		t.Fatalf("installing a linked alarm should be a permission error, got %v", err)
	}

	if err := s.Uninstall(h); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	clock.Advance(2 * time.Second)
	_ = s.dispatch(context.Background(), thr)
	if len(rec.snapshot()) != 0 {
		t.Fatal("uninstalled alarm fired")
	}
	entries, err := s.Query(Filter{Handle: h})
	if err != nil || len(entries) != 1 || entries[0].Status != StatusScheduled {
		t.Fatalf("uninstalled alarm should still be queryable: %+v %v", entries, err)
	}

	if err := s.Install(h); err != nil {
		t.Fatalf("Install: %v", err)
	}
	_ = s.dispatch(context.Background(), thr)
	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected reinstalled alarm to fire once, got %v", got)
	}

	// fired, not freed: reinstall arms it again at a new deadline
	if err := s.ReinstallAfter(h, time.Second); err != nil {
		t.Fatalf("ReinstallAfter: %v", err)
	}
	entries, _ = s.Query(Filter{Handle: h})
	if len(entries) != 1 || entries[0].Status != StatusNext {
		t.Fatalf("reinstalled alarm should be next, got %+v", entries)
	}
	clock.Advance(2 * time.Second)
	_ = s.dispatch(context.Background(), thr)
	if got := rec.snapshot(); len(got) != 2 {
		t.Fatalf("expected two invocations, got %v", got)
	}
}

func TestReinstallMovesArmedAlarm(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	h1, _ := thr.After(time.Second, rec.cb("one"))
	h2, _ := thr.After(2*time.Second, rec.cb("two"))
	if err := s.ReinstallAt(h1, clock.Now().Add(3*time.Second)); err != nil {
		t.Fatalf("ReinstallAt: %v", err)
	}

	entries, _ := thr.Alarms()
	if len(entries) != 2 || entries[0].Handle != h2 || entries[1].Handle != h1 {
		t.Fatalf("expected h2 before h1 after moving h1, got %+v", entries)
	}
	if err := s.Reinstall(h2); err != nil {
		t.Fatalf("Reinstall: %v", err)
	}
	if !s.listSorted() {
		t.Fatal("schedule not sorted after reinstall")
	}
}

func TestCreateWithoutInstall(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	h, err := thr.After(time.Second, rec.cb("later"), WithInstall(false))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if st := s.Stats(); st.Allocated != 1 || st.Installed != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if err := s.Install(h); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if thr.Armed() != 1 {
		t.Fatalf("expected one armed alarm, got %d", thr.Armed())
	}
}

func TestCallbackMayScheduleOnItsOwnThread(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	var self Handle
	var err error
	self, err = thr.After(time.Second, CallbackFunc(func(context.Context) error {
		// install a due alarm and remove ourselves while the handler runs
		if _, err := thr.After(-time.Second, rec.cb("nested")); err != nil {
			return err
		}
		return s.Remove(self)
	}))
	if err != nil {
		t.Fatalf("After: %v", err)
	}

	clock.Advance(time.Second)
	if err := s.dispatch(context.Background(), thr); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := rec.snapshot(); len(got) != 1 || got[0] != "nested" {
		t.Fatalf("expected the nested alarm to run in the same pass, got %v", got)
	}
}

func TestCallbackErrorsAreReturned(t *testing.T) {
	clock := newFakeClock()
	s := newTestScheduler(t, &Config{Clock: clock, Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	boom := errors.New("boom")
	var ran atomic.Int32

	_, _ = thr.After(0, CallbackFunc(func(context.Context) error { ran.Add(1); return boom }))
	_, _ = thr.After(0, CallbackFunc(func(context.Context) error { ran.Add(1); return nil }))

	err := s.dispatch(context.Background(), thr)
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if ran.Load() != 2 {
		t.Fatalf("a failing callback must not stop the others, ran %d", ran.Load())
	}
}

func TestThreadExitPurgesAlarms(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	other := mustAttach(t, s)
	rec := &recorder{}

	var handles []Handle
	for i, d := range []time.Duration{30 * time.Millisecond, 40 * time.Millisecond, time.Hour} {
		h, err := thr.After(d, rec.cb("doomed"))
		if err != nil {
			t.Fatalf("After %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	keep, _ := other.After(time.Hour, rec.cb("survivor"))

	thr.Exit()
	thr.Exit()

	time.Sleep(100 * time.Millisecond)
	_ = thr.SafePoint(context.Background())
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("callbacks of an exited thread ran: %v", got)
	}
	for _, h := range handles {
		if err := s.Remove(h); !errors.Is(err, ErrStaleHandle) {
			t.Fatalf("expected stale handle after exit, got %v", err)
		}
	}
	if _, err := s.Query(Filter{Handle: keep}); err != nil {
		t.Fatalf("other thread's alarm should survive: %v", err)
	}
	if _, err := thr.After(time.Second, rec.cb("late")); !errors.Is(err, ErrThreadExited) {
		t.Fatalf("expected ErrThreadExited, got %v", err)
	}
	if st := s.Stats(); st.Threads != 1 || st.Allocated != 1 {
		t.Fatalf("unexpected stats after exit %+v", st)
	}
}

func TestThreadIDsAreReused(t *testing.T) {
	s := newTestScheduler(t, nil)
	a := mustAttach(t, s)
	id := a.ID()
	a.Exit()

	b := mustAttach(t, s)
	if b.ID() != id {
		t.Fatalf("expected id %d to be reused, got %d", id, b.ID())
	}
}

func TestForeignHandleRejected(t *testing.T) {
	s1 := newTestScheduler(t, nil)
	s2 := newTestScheduler(t, nil)
	thr := mustAttach(t, s1)

	h, err := thr.After(time.Hour, CallbackFunc(func(context.Context) error { return nil }))
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if err := s2.Remove(h); !errors.Is(err, ErrForeignHandle) || !errors.Is(err, ErrArgument) {
		t.Fatalf("expected foreign handle argument error, got %v", err)
	}
	if err := s2.Uninstall(Handle{}); !errors.Is(err, ErrUnknownHandle) {
		t.Fatalf("expected unknown handle error for zero handle, got %v", err)
	}
}

func TestMaxEventsIsAResourceError(t *testing.T) {
	s := newTestScheduler(t, &Config{MaxEvents: 2})
	thr := mustAttach(t, s)
	cb := CallbackFunc(func(context.Context) error { return nil })

	h, _ := thr.After(time.Hour, cb)
	_, _ = thr.After(time.Hour, cb)
	if _, err := thr.After(time.Hour, cb); !errors.Is(err, ErrResource) || !errors.Is(err, ErrTooManyEvents) {
		t.Fatalf("expected resource error, got %v", err)
	}
	_ = s.Remove(h)
	if _, err := thr.After(time.Hour, cb); err != nil {
		t.Fatalf("freeing an alarm should make room: %v", err)
	}
}

func TestNilCallbackRejected(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	if _, err := thr.After(time.Second, nil); !errors.Is(err, ErrNilCallback) {
		t.Fatalf("expected ErrNilCallback, got %v", err)
	}
	if _, err := thr.AtSeconds(nan(), CallbackFunc(func(context.Context) error { return nil })); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}

func TestCloseRemovesEverything(t *testing.T) {
	s := New(nil)
	thr := mustAttach(t, s)
	rec := &recorder{}

	for i := 0; i < 3; i++ {
		if _, err := thr.After(20*time.Millisecond, rec.cb("never")); err != nil {
			t.Fatalf("After: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Running() {
		t.Fatal("scheduler still running after Close")
	}
	time.Sleep(50 * time.Millisecond)
	_ = thr.SafePoint(context.Background())
	if len(rec.snapshot()) != 0 {
		t.Fatal("alarms fired after Close")
	}
	if _, err := s.Attach(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Attach, got %v", err)
	}
	if _, err := thr.After(time.Second, rec.cb("late")); !errors.Is(err, ErrClosed) || !errors.Is(err, ErrResource) {
		t.Fatalf("expected a resource error wrapping ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPollNotifierRequiresSafePoint(t *testing.T) {
	s := newTestScheduler(t, &Config{Notifier: PollNotifier{}})
	thr := mustAttach(t, s)
	rec := &recorder{}

	if _, err := thr.After(10*time.Millisecond, rec.cb("polled")); err != nil {
		t.Fatalf("After: %v", err)
	}
	waitFor(t, 2*time.Second, thr.Pending)
	select {
	case <-thr.Wake():
		t.Fatal("poll notifier must not use the wake channel")
	default:
	}
	if err := thr.SafePoint(context.Background()); err != nil {
		t.Fatalf("SafePoint: %v", err)
	}
	if len(rec.snapshot()) != 1 {
		t.Fatal("expected the alarm to run at the safe point")
	}
}

func TestThreadLoopRunsAlarms(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)
	var fired atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- thr.Loop(ctx) }()

	for i := 0; i < 3; i++ {
		d := time.Duration(10*(i+1)) * time.Millisecond
		if _, err := thr.After(d, CallbackFunc(func(context.Context) error {
			fired.Add(1)
			return nil
		}), WithAutoRemove(true)); err != nil {
			t.Fatalf("After: %v", err)
		}
	}
	waitFor(t, 2*time.Second, func() bool { return fired.Load() == 3 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSchedulerLogsPasses(t *testing.T) {
	mock := logger.NewMockLogger()
	s := newTestScheduler(t, &Config{Logger: mock})
	thr := mustAttach(t, s)

	if _, err := thr.After(5*time.Millisecond, CallbackFunc(func(context.Context) error { return nil })); err != nil {
		t.Fatalf("After: %v", err)
	}
	waitWake(t, thr, 2*time.Second)
	_ = thr.SafePoint(context.Background())
	waitFor(t, time.Second, func() bool { return mock.Contains("processed pending events") })
	if !mock.Contains("signalling thread") {
		t.Fatal("expected the scheduler to trace its notification")
	}
}

func TestConcurrentRemoveWhileFiring(t *testing.T) {
	s := newTestScheduler(t, nil)
	thr := mustAttach(t, s)

	const n = 200
	var invoked [n]atomic.Int32
	handles := make([]Handle, n)
	for i := 0; i < n; i++ {
		i := i
		h, err := thr.After(time.Duration(i%20)*time.Millisecond, CallbackFunc(func(context.Context) error {
			invoked[i].Add(1)
			return nil
		}), WithAutoRemove(i%2 == 0))
		if err != nil {
			t.Fatalf("After: %v", err)
		}
		handles[i] = h
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = thr.Loop(ctx)
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < n; i += 4 {
				err := s.Remove(handles[i])
				if err != nil && !errors.Is(err, ErrStaleHandle) {
					t.Errorf("Remove: %v", err)
				}
				time.Sleep(100 * time.Microsecond)
			}
		}(w)
	}
	wg.Wait()
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-loopDone

	for i := range invoked {
		if c := invoked[i].Load(); c > 1 {
			t.Fatalf("alarm %d invoked %d times", i, c)
		}
	}
	if st := s.Stats(); st.Allocated != 0 {
		t.Fatalf("expected every alarm freed, %d left", st.Allocated)
	}
}
