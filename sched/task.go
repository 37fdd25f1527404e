package sched

import "fmt"

// StepResult is returned by Task.Step.
type StepResult int

const (
	// Continue requeues the task at the tail of its class.
	Continue StepResult = iota
	// Done retires the task; its result is final.
	Done
)

// String returns the result name.
func (r StepResult) String() string {
	switch r {
	case Continue:
		return "Continue"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("StepResult(%d)", int(r))
	}
}

// PriorityClass is a scheduling tier. Lower values are served first.
type PriorityClass int

const (
	Normal PriorityClass = iota
	CanBeDelayed
	LeastWanted

	numClasses = int(LeastWanted) + 1
)

// String returns the class name.
func (c PriorityClass) String() string {
	switch c {
	case Normal:
		return "Normal"
	case CanBeDelayed:
		return "CanBeDelayed"
	case LeastWanted:
		return "LeastWanted"
	default:
		return fmt.Sprintf("PriorityClass(%d)", int(c))
	}
}

// Valid reports whether c is a known class.
func (c PriorityClass) Valid() bool {
	return c >= Normal && c <= LeastWanted
}

// Task is a unit of resumable work.
//
// Step is only ever called by one worker at a time. A task that cannot make
// progress must still move toward Done and record the failure in its result.
//
// Implementations must be comparable (pointer types in practice): the
// scheduler uses task identity to reject double submission.
type Task interface {
	// Step performs the work of the current stage and advances it.
	Step() StepResult

	// Stage returns the current stage. It starts at 0 and never decreases.
	Stage() int

	// Priority returns the class the task is queued in.
	Priority() PriorityClass
}

// Failer is implemented by tasks that can record an external failure.
// When Step panics the worker recovers and calls Fail before retiring
// the task.
type Failer interface {
	Fail(err error)
}

// Listener receives finished tasks on the coordinator goroutine.
type Listener interface {
	// NotifyTaskDone is called from Scheduler.Drain. The task is handed
	// over; the scheduler keeps no reference to it.
	NotifyTaskDone(t Task)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(t Task)

// NotifyTaskDone calls f(t).
func (f ListenerFunc) NotifyTaskDone(t Task) { f(t) }
