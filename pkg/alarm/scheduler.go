package alarm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/warpalarm/pkg/logger"
)

// DefaultMaxSleep caps a single scheduler wait so that wall-clock steps (NTP,
// DST, suspend) are noticed within this bound.
const DefaultMaxSleep = 60 * time.Second

var schedulerIDs atomic.Uint32

// Config holds Scheduler settings. The zero value is usable.
type Config struct {
	// MaxEvents caps the number of allocated alarms. Zero means no cap.
	MaxEvents int
	// MaxSleep caps one scheduler wait. Zero means DefaultMaxSleep.
	MaxSleep time.Duration
	// Notifier delivers notifications to owning threads.
	// Nil means InterruptNotifier.
	Notifier Notifier
	// Logger receives debug traces and warnings. Nil discards them.
	Logger logger.Logger
	// Clock supplies the current time. Nil means the system clock.
	Clock Clock
}

func applyConfigDefaults(cfg *Config) Config {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.MaxSleep <= 0 {
		c.MaxSleep = DefaultMaxSleep
	}
	if c.Notifier == nil {
		c.Notifier = InterruptNotifier{}
	}
	if c.Logger == nil {
		c.Logger = logger.NewNopLogger()
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	return c
}

// Scheduler owns the shared alarm schedule, the registry of owning threads,
// and the background goroutine that notifies threads when alarms are due.
type Scheduler struct {
	id        uint32
	maxEvents int
	maxSleep  time.Duration
	notifier  Notifier
	clock     Clock
	log       logger.Logger

	// wake is the scheduler's condition signal. It has a buffer of one, so
	// a signal sent while the loop is busy is seen by its next wait.
	wake chan struct{}

	mu       sync.Mutex
	arena    arena
	list     scheduleList
	threads  map[int]*Thread
	freeIDs  []int
	nextID   int
	notified *notifiedSet
	running  bool
	closed   bool
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Scheduler. The background goroutine is started lazily by the
// first install.
func New(cfg *Config) *Scheduler {
	c := applyConfigDefaults(cfg)
	return &Scheduler{
		id:        schedulerIDs.Add(1),
		maxEvents: c.MaxEvents,
		maxSleep:  c.MaxSleep,
		notifier:  c.Notifier,
		clock:     c.Clock,
		log:       c.Logger,
		wake:      make(chan struct{}, 1),
		threads:   make(map[int]*Thread),
		notified:  newNotifiedSet(64),
	}
}

// Attach registers the calling goroutine as an owning thread. Callers that
// want OSThread to be meaningful lock their OS thread first.
func (s *Scheduler) Attach() (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, newError(KindResource, "attach", ErrClosed)
	}
	var id int
	if n := len(s.freeIDs); n > 0 {
		id = s.freeIDs[n-1]
		s.freeIDs = s.freeIDs[:n-1]
	} else {
		s.nextID++
		id = s.nextID
	}
	t := &Thread{
		sched:    s,
		id:       id,
		osThread: currentOSThread(),
		wake:     make(chan struct{}, 1),
	}
	s.threads[id] = t
	s.log.Debug("alarm: attached thread %d (os thread %d)", id, t.osThread)
	return t, nil
}

// signal wakes the scheduler goroutine so it re-evaluates its next deadline.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// startLocked starts the scheduler goroutine if it is not running.
// Caller must hold s.mu.
func (s *Scheduler) startLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.running {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	go s.loop(s.stop, s.done)
	s.log.Debug("alarm: started scheduler %d", s.id)
	return nil
}

// Now returns the current time of the scheduler's clock.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Running reports whether the scheduler goroutine is running.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	defer timer.Stop()

	var due []*event
	for {
		now, next := s.pass(&due)

		var timerC <-chan time.Time
		if next != nil {
			d := next.Sub(now)
			if d > s.maxSleep {
				d = s.maxSleep
			}
			if d < 0 {
				d = 0
			}
			s.log.Debug("alarm: waiting %v", d)
			timer.Reset(d)
			timerC = timer.C
		} else {
			s.log.Debug("alarm: no waiting events")
		}

		select {
		case <-stop:
			return
		case <-s.wake:
		case <-timerC:
		}
		stopTimer(timer)
	}
}

// pass runs one scheduler iteration: it notifies the owners of due events,
// once per owner, and returns the deadline to wait for, if any.
func (s *Scheduler) pass(due *[]*event) (time.Time, *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.notified.clear()
	*due = s.list.scanDue(now, (*due)[:0])
	for _, ev := range *due {
		owner := ev.owner
		if !s.notified.isMarked(owner.id) {
			s.notified.mark(owner.id)
			s.log.Debug("alarm: signalling thread %d", owner.id)
			s.notifier.Notify(owner)
		}
		ev.flags |= FlagFired
	}
	clear(*due)

	next := s.list.nextPending()
	if next == nil {
		return now, nil
	}
	at := next.at
	return now, &at
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// Close removes every alarm without running it, stops the scheduler
// goroutine and waits for it to exit. A closed scheduler rejects new alarms
// and threads. Close is idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var victims []*event
	s.arena.each(func(ev *event) { victims = append(victims, ev) })
	for _, ev := range victims {
		s.freeLocked(ev)
	}
	for id, t := range s.threads {
		t.exited = true
		delete(s.threads, id)
	}
	running := s.running
	stop, done := s.stop, s.done
	s.running = false
	s.mu.Unlock()

	if running {
		close(stop)
		<-done
	}
	s.log.Debug("alarm: scheduler %d closed (%d alarms removed)", s.id, len(victims))
	return nil
}

// Stats is a point-in-time summary of a Scheduler.
type Stats struct {
	// Allocated counts alarms that have not been freed.
	Allocated int
	// Installed counts alarms linked into the schedule.
	Installed int
	// Threads counts attached threads.
	Threads int
	Running bool
}

// Stats returns a summary of s.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Allocated: s.arena.live,
		Installed: s.list.len(),
		Threads:   len(s.threads),
		Running:   s.running,
	}
}
