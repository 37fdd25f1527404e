package sched

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Scheduler errors.
var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("sched: scheduler closed")

	// ErrAlreadySubmitted is returned when a task is submitted while a
	// previous submission of the same task has not been delivered yet.
	ErrAlreadySubmitted = errors.New("sched: task already submitted")

	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("sched: nil task")
)

// ListenerID identifies a registered Listener.
type ListenerID uint64

// NoListener submits a task whose completion nobody receives.
const NoListener ListenerID = 0

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger. Nil restores the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		s.logger = l
	}
}

// Scheduler is the public entry point: submit, drain completions, close.
//
// Submit, RegisterListener, UnregisterListener and Stats are safe for
// concurrent use. Drain must only be called from the coordinator goroutine.
type Scheduler struct {
	queue *PriorityQueue[*envelope]
	inbox completionInbox
	pool  *workerPool

	listeners *xsync.MapOf[ListenerID, Listener]
	nextID    atomic.Uint64

	// active holds tasks between Submit and delivery (or drop).
	active *xsync.MapOf[Task, struct{}]

	logger *slog.Logger
	closed atomic.Bool

	submitted atomic.Uint64
	delivered atomic.Uint64
	orphaned  atomic.Uint64
	dropped   atomic.Uint64
}

// New starts a scheduler with the given number of worker goroutines.
// It panics if workers is not positive.
func New(workers int, opts ...Option) *Scheduler {
	if workers <= 0 {
		panic(fmt.Sprintf("sched: worker count must be positive, got %d", workers))
	}

	s := &Scheduler{
		queue:     NewPriorityQueue[*envelope](),
		listeners: xsync.NewMapOf[ListenerID, Listener](),
		active:    xsync.NewMapOf[Task, struct{}](),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pool = newWorkerPool(workers, s.queue, &s.inbox, s.logger, s.drop)
	s.logger.Debug("sched: started", "workers", workers)
	return s
}

// Workers returns the number of worker goroutines.
func (s *Scheduler) Workers() int {
	return s.pool.workers
}

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger {
	return s.logger
}

// RegisterListener adds l to the listener arena and returns its ID.
func (s *Scheduler) RegisterListener(l Listener) ListenerID {
	id := ListenerID(s.nextID.Add(1))
	s.listeners.Store(id, l)
	return id
}

// UnregisterListener removes a listener. Completions that arrive for it
// later are dropped silently.
func (s *Scheduler) UnregisterListener(id ListenerID) {
	s.listeners.Delete(id)
}

// Submit queues t at t.Priority(). The scheduler owns t until it is
// delivered to the listener identified by id.
func (s *Scheduler) Submit(t Task, id ListenerID) error {
	if t == nil {
		return ErrNilTask
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if _, loaded := s.active.LoadOrStore(t, struct{}{}); loaded {
		return ErrAlreadySubmitted
	}

	env := &envelope{task: t, listener: id}
	if !s.queue.Push(env, t.Priority()) {
		s.active.Delete(t)
		return ErrClosed
	}
	s.submitted.Add(1)
	return nil
}

// Drain delivers every retired task to its listener, in retirement order,
// on the calling goroutine. It returns the number of tasks delivered.
// Completions for unknown listeners are discarded.
//
// Drain must only be called from the coordinator goroutine.
func (s *Scheduler) Drain() int {
	if s.closed.Load() {
		return 0
	}

	n := 0
	for _, env := range s.inbox.takeAll() {
		s.active.Delete(env.task)

		if env.listener == NoListener {
			s.orphaned.Add(1)
			continue
		}
		l, ok := s.listeners.Load(env.listener)
		if !ok {
			s.orphaned.Add(1)
			continue
		}
		l.NotifyTaskDone(env.task)
		s.delivered.Add(1)
		n++
	}
	return n
}

// Close stops accepting tasks, waits for in-flight steps to finish and
// drops every queued task and undelivered completion. Listeners are not
// notified. Close is safe to call multiple times.
func (s *Scheduler) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	rest := s.pool.close()
	for _, env := range rest {
		s.drop(env)
	}
	for _, env := range s.inbox.takeAll() {
		s.drop(env)
	}
	s.logger.Debug("sched: closed", "dropped", s.dropped.Load())
}

func (s *Scheduler) drop(env *envelope) {
	s.active.Delete(env.task)
	s.dropped.Add(1)
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Workers   int
	Queued    int
	InFlight  int
	Pending   int // retired but not yet drained
	Submitted uint64
	Retired   uint64
	Delivered uint64
	Orphaned  uint64 // retired with no registered listener
	Dropped   uint64 // discarded by Close
	Panics    uint64
	Listeners int
}

// Stats returns a snapshot of the scheduler's counters. Fields are read
// independently and may be mutually inconsistent while workers run.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Workers:   s.pool.workers,
		Queued:    s.queue.Len(),
		InFlight:  int(s.pool.inFlight.Load()),
		Pending:   s.inbox.len(),
		Submitted: s.submitted.Load(),
		Retired:   s.pool.retired.Load(),
		Delivered: s.delivered.Load(),
		Orphaned:  s.orphaned.Load(),
		Dropped:   s.dropped.Load(),
		Panics:    s.pool.panics.Load(),
		Listeners: s.listeners.Size(),
	}
}
