package alarm

import "fmt"

// Notifier asks an owning thread to run its due alarms soon. Notify is called
// with the scheduler lock held, so it must not block and must not call back
// into the Scheduler. Delivering more than once is harmless.
type Notifier interface {
	Notify(t *Thread)
}

// InterruptNotifier wakes the thread's driver goroutine through Thread.Wake,
// interrupting a select that waits on it.
type InterruptNotifier struct{}

func (InterruptNotifier) Notify(t *Thread) {
	t.pending.Store(true)
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// PollNotifier only raises the thread's pending flag. The thread observes it
// the next time it calls SafePoint.
type PollNotifier struct{}

func (PollNotifier) Notify(t *Thread) {
	t.pending.Store(true)
}

// NotifierByName returns the notifier strategy called name: "interrupt"
// (the default for "") or "poll".
func NotifierByName(name string) (Notifier, error) {
	switch name {
	case "", "interrupt":
		return InterruptNotifier{}, nil
	case "poll":
		return PollNotifier{}, nil
	default:
		return nil, newError(KindArgument, "notifier", fmt.Errorf("unknown strategy %q", name))
	}
}
