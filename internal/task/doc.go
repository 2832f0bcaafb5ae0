// Package task is the reference Task runtime the harness plugs into.
//
// The harness depends on two contract points only:
//
//   - Task.Run, invoked once when the runtime decides to execute the task.
//   - Finisher.Finish, called once by the task with its final result.
//
// Everything else here (handles, the logical clock, the event trace) is the
// minimum a test needs to observe a task: wait for it, read its result, and
// check the order in which tasks started and finished.
//
// LIFECYCLE:
//
//	Pending -> Running -> Finished
//
// Start moves a handle to Running and calls Run. Finish moves it to Finished,
// appends a finished event to the runtime trace, closes Done, and then runs
// continuations registered with Then, in registration order.
//
// A second Finish on the same handle is a programming error and panics.
package task
