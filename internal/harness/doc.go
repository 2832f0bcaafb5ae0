// Package harness provides stand-in tasks whose outcome is fixed at
// construction.
//
// Two variants implement task.Task:
//
//   - Immediate reports its result synchronously from Run. The runtime has
//     observed the finish before Run returns, so a test can assert right
//     after starting it.
//   - Delayed arms a one-shot timer in Run and returns at once. The result is
//     reported when the timer fires, from the scheduler's goroutine. A zero
//     delay is still asynchronous.
//
// AnyTask is the shorthand for tests that do not care about timing.
//
// # Usage
//
//	rt := task.NewRuntime()
//	h := task.Start(rt, "fetch", harness.AnyTask(result.Success(42)))
//	r, _ := h.Result() // success(42), already finished
//
//	tc := testutil.NewTestCase(t)
//	d := harness.NewDelayed(
//	    result.Failure[int](taskerr.Fail("network down")),
//	    200*time.Millisecond,
//	    harness.OnQueue(tc.Queue),
//	)
//	h = task.Start(rt, "fetch", d)
//	r = testutil.Await(t, h, time.Second)
//
// # Misuse
//
// Harness tasks are single use. Running one twice, or constructing a Delayed
// task with a negative delay, panics: it means the test is broken, not that
// the simulated work failed.
package harness
