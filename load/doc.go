// Package load implements the asynchronous load pipelines.
//
// A pipeline turns a path request into a [Task], submits it to the
// scheduler with itself as the listener, and when the finished task comes
// back uploads the decoded payload into the waiting handle.
//
// There is one pipeline per resource kind: [TexturePipeline],
// [ModelPipeline] and [SkinnedModelPipeline]. Each keeps a waiting table
// keyed by canonical path, so at most one load per path is in flight.
// Model pipelines keep a second list of handles whose GPU-side preparation
// is spread over several Update calls.
//
// Pipelines are not safe for concurrent use. They are driven from the
// coordinator goroutine: Start, Update, SetRenderer, InvalidateRenderer and,
// through [sched.Scheduler.Drain], NotifyTaskDone.
package load
