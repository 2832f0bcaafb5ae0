// Package dispatch provides named serial execution contexts.
//
// A Queue owns one worker goroutine. Work submitted with Async runs on that
// goroutine in FIFO order, never concurrently with other work on the same
// queue. AsyncAfter arms a runtime timer and submits the work to the queue
// when the timer fires, so delayed work also runs on the queue's worker.
//
// Tests create one Queue per test case (see testutil.NewTestCase) and pass it
// explicitly to whatever needs to run off the test goroutine.
package dispatch

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Queue is a named serial execution context.
type Queue struct {
	name    string
	work    *workQueue
	logger  *slog.Logger
	stopped chan struct{}

	closeOnce sync.Once
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the queue logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// New creates a Queue and starts its worker.
//
// Callers must Close the queue when done with it.
func New(name string, opts ...Option) *Queue {
	q := &Queue{
		name:    name,
		work:    newWorkQueue(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With("queue", name)

	go q.run()
	return q
}

// Name returns the label given to New.
func (q *Queue) Name() string {
	return q.name
}

// Async submits fn to run on the queue's worker and returns immediately.
// Returns false if the queue is closed; fn is then never run.
func (q *Queue) Async(fn func()) bool {
	if !q.work.Enqueue(fn) {
		q.logger.Warn("work rejected: queue closed")
		return false
	}
	return true
}

// AsyncAfter submits fn to the queue once d has elapsed.
//
// The call returns immediately, even for d <= 0. If the queue has been
// closed by the time the timer fires, fn is dropped.
func (q *Queue) AsyncAfter(d time.Duration, fn func()) {
	q.logger.Debug("delayed work scheduled", "delay", d)
	time.AfterFunc(d, func() {
		q.Async(fn)
	})
}

// AfterFunc is AsyncAfter under the name harness schedulers expect.
func (q *Queue) AfterFunc(d time.Duration, fn func()) {
	q.AsyncAfter(d, fn)
}

// Sync submits fn and blocks until it has run.
//
// Calling Sync from work already running on q deadlocks.
// Returns false if the queue is closed.
func (q *Queue) Sync(fn func()) bool {
	done := make(chan struct{})
	if !q.Async(func() {
		defer close(done)
		fn()
	}) {
		return false
	}
	<-done
	return true
}

// Pending returns the number of submitted items not yet started.
func (q *Queue) Pending() int {
	return q.work.Len()
}

// Close stops accepting work, lets already submitted work finish, and waits
// for the worker to exit. Close is idempotent.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.work.Close()
	})
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	q.logger.Debug("queue started")

	for {
		if fn, ok := q.work.TryDequeue(); ok {
			fn()
			continue
		}

		// The signal channel closes on Close, so this never blocks after
		// Close and the loop falls through to the final drain check.
		<-q.work.Wait()
		if q.work.Closed() && q.work.Len() == 0 {
			q.logger.Debug("queue stopped")
			return
		}
	}
}
