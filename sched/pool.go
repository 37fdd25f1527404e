package sched

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTaskPanicked is passed to Failer.Fail when Step panics.
var ErrTaskPanicked = errors.New("sched: task panicked")

// envelope is the scheduler's per-submission record.
type envelope struct {
	task     Task
	listener ListenerID

	// stepping is set while a worker is inside Step.
	stepping atomic.Bool

	// steps counts Step calls. Only the stepping worker touches it.
	steps int
}

// workerPool runs envelopes from a shared priority queue.
//
// Workers block in queue.Pop, so an idle pool costs nothing. Closing the
// queue is the stop signal: every waiting worker wakes, sees the closed
// queue and exits. A worker inside Step finishes that step first.
type workerPool struct {
	workers int
	queue   *PriorityQueue[*envelope]
	inbox   *completionInbox
	logger  *slog.Logger

	// onDrop is called for a task that asked to continue after Close.
	onDrop func(env *envelope)

	wg       sync.WaitGroup
	running  atomic.Bool
	inFlight atomic.Int64
	retired  atomic.Uint64
	panics   atomic.Uint64
}

// newWorkerPool starts workers goroutines. onDrop may be nil. It is fixed
// before the first worker starts.
func newWorkerPool(workers int, queue *PriorityQueue[*envelope], inbox *completionInbox,
	logger *slog.Logger, onDrop func(*envelope)) *workerPool {
	if onDrop == nil {
		onDrop = func(*envelope) {}
	}
	p := &workerPool{
		workers: workers,
		queue:   queue,
		inbox:   inbox,
		logger:  logger,
		onDrop:  onDrop,
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

// worker is the main loop for each worker goroutine.
func (p *workerPool) worker(id int) {
	defer p.wg.Done()

	for {
		env, ok := p.queue.Pop()
		if !ok {
			return
		}

		p.inFlight.Add(1)
		res := p.step(id, env)
		p.inFlight.Add(-1)

		if res == Continue {
			if !p.queue.Push(env, env.task.Priority()) {
				p.onDrop(env)
			}
			continue
		}

		p.retired.Add(1)
		p.inbox.push(env)
	}
}

// step calls Step once, guarding against concurrent stepping of the same
// envelope. Stages must strictly increase while a task continues; a stage
// that goes backwards or stays put is logged as an error. A panic inside Step is turned
// into a task failure and retires the task.
func (p *workerPool) step(worker int, env *envelope) (res StepResult) {
	if !env.stepping.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("sched: task %T stepped by two workers at once", env.task))
	}
	defer env.stepping.Store(false)

	before := env.task.Stage()
	start := time.Now()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		p.panics.Add(1)
		err := fmt.Errorf("%w: stage %d: %v", ErrTaskPanicked, before, r)
		p.logger.Error("sched: task panicked",
			"task", fmt.Sprintf("%T", env.task),
			"stage", before,
			"panic", r)
		if f, ok := env.task.(Failer); ok {
			f.Fail(err)
		}
		res = Done
	}()

	res = env.task.Step()
	env.steps++

	after := env.task.Stage()
	switch {
	case after < before:
		p.logger.Error("sched: task stage went backwards",
			"task", fmt.Sprintf("%T", env.task),
			"before", before,
			"after", after)
	case res == Continue && after == before:
		p.logger.Error("sched: task stage did not advance",
			"task", fmt.Sprintf("%T", env.task),
			"stage", before)
	}
	if p.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.logger.Debug("sched: step",
			"worker", worker,
			"task", fmt.Sprintf("%T", env.task),
			"stage", before,
			"result", res,
			"elapsed", time.Since(start))
	}
	return res
}

// close stops the pool and waits for every worker to exit. Queued
// envelopes are returned. close is safe to call multiple times.
func (p *workerPool) close() []*envelope {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	rest := p.queue.Close()
	p.wg.Wait()
	return rest
}
