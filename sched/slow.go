package sched

import "time"

// SlowTask is a synthetic LeastWanted task that sleeps for Delay on each of
// Steps steps. It is used to load-test the scheduler and to observe that
// lower classes yield to higher ones.
type SlowTask struct {
	Steps int
	Delay time.Duration

	stage int
}

// NewSlowTask returns a task that takes steps steps of delay each.
func NewSlowTask(steps int, delay time.Duration) *SlowTask {
	return &SlowTask{Steps: steps, Delay: delay}
}

// Step implements Task.
func (t *SlowTask) Step() StepResult {
	if t.stage >= t.Steps {
		return Done
	}
	time.Sleep(t.Delay)
	t.stage++
	if t.stage >= t.Steps {
		return Done
	}
	return Continue
}

// Stage implements Task.
func (t *SlowTask) Stage() int { return t.stage }

// Priority implements Task.
func (t *SlowTask) Priority() PriorityClass { return LeastWanted }
