// Package sched runs resumable, multi-stage tasks on a fixed pool of
// worker goroutines and hands finished tasks back to a single coordinator
// goroutine.
//
// # Model
//
// A [Task] advances one stage per [Task.Step] call. Workers pop a task,
// step it once, and either push it back at the tail of its priority class
// ([Continue]) or retire it into the completion inbox ([Done]). Long jobs
// therefore interleave with short ones instead of holding a worker.
//
// The coordinator calls [Scheduler.Drain] once per tick. Drain delivers
// every retired task to the [Listener] it was submitted with, synchronously
// and in retirement order. This is the only place listeners run, so their
// state needs no locking as long as it is only touched from the
// coordinator goroutine.
//
// # Priorities
//
// Classes are served strictly in order: [Normal], then [CanBeDelayed], then
// [LeastWanted]. There is no aging. A [LeastWanted] task waits for as long
// as higher-class work is queued; callers that submit unbounded Normal work
// starve the lower classes on purpose.
//
// # Listeners
//
// Listeners are registered in an arena and referenced by [ListenerID].
// A completion whose listener was unregistered is dropped silently, which
// lets a listener go away while its tasks are still running.
//
// # Shutdown
//
// [Scheduler.Close] lets in-flight steps finish, then drops every queued
// task and every undelivered completion without notifying anyone.
package sched
