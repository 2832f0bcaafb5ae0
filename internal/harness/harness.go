package harness

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/overdrive/internal/result"
	"github.com/roach88/overdrive/internal/task"
)

// Immediate is a task that finishes with a predetermined result as soon as
// it is run.
type Immediate[T any] struct {
	res     result.Result[T]
	started atomic.Bool
}

// NewImmediate creates an Immediate task that will report r.
func NewImmediate[T any](r result.Result[T]) *Immediate[T] {
	return &Immediate[T]{res: r}
}

// Result returns the stored result.
func (t *Immediate[T]) Result() result.Result[T] {
	return t.res
}

// Started reports whether Run has been called.
func (t *Immediate[T]) Started() bool {
	return t.started.Load()
}

// Run reports the stored result to f before returning.
//
// Panics if called more than once.
func (t *Immediate[T]) Run(f task.Finisher[T]) {
	t.claim("Immediate")
	f.Finish(t.res)
}

// claim flips the start-once guard or panics.
func (t *Immediate[T]) claim(kind string) {
	if !t.started.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("harness: %s task started more than once", kind))
	}
}

// Scheduler runs fn once, after d, on an execution context other than the
// caller's.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerScheduler fires on the Go runtime's timer goroutines.
type TimerScheduler struct{}

// AfterFunc arms a time.AfterFunc timer.
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// Delayed is a task that finishes with a predetermined result once its delay
// has elapsed.
type Delayed[T any] struct {
	Immediate[T]
	delay     time.Duration
	scheduler Scheduler
	logger    *slog.Logger
}

// DelayedOption configures a Delayed task.
type DelayedOption func(*delayedConfig)

type delayedConfig struct {
	scheduler Scheduler
	logger    *slog.Logger
}

// OnQueue fires the delayed finish through s, typically a *dispatch.Queue.
// The default is TimerScheduler.
func OnQueue(s Scheduler) DelayedOption {
	return func(c *delayedConfig) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger for scheduling and delivery events.
func WithLogger(l *slog.Logger) DelayedOption {
	return func(c *delayedConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewDelayed creates a Delayed task that will report r after delay.
//
// Panics if delay is negative.
func NewDelayed[T any](r result.Result[T], delay time.Duration, opts ...DelayedOption) *Delayed[T] {
	if delay < 0 {
		panic(fmt.Sprintf("harness: negative delay %s", delay))
	}
	cfg := delayedConfig{
		scheduler: TimerScheduler{},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Delayed[T]{
		Immediate: Immediate[T]{res: r},
		delay:     delay,
		scheduler: cfg.scheduler,
		logger:    cfg.logger,
	}
}

// Delay returns the configured delay.
func (t *Delayed[T]) Delay() time.Duration {
	return t.delay
}

// Run arms the timer and returns without reporting. f.Finish is called with
// the stored result from the scheduler's execution context once the delay
// has elapsed.
//
// Panics if called more than once.
func (t *Delayed[T]) Run(f task.Finisher[T]) {
	t.claim("Delayed")
	t.logger.Debug("delayed finish scheduled", "delay", t.delay)

	// A zero-delay timer may fire on another goroutine before Run has
	// returned; returned orders the finish strictly after Run.
	returned := make(chan struct{})
	defer close(returned)

	res := t.res
	t.scheduler.AfterFunc(t.delay, func() {
		<-returned
		t.logger.Debug("delayed finish firing", "delay", t.delay, "outcome", res.String())
		f.Finish(res)
	})
}

// AnyTask returns a ready task that finishes with r as soon as it is run.
func AnyTask[T any](r result.Result[T]) task.Task[T] {
	return NewImmediate(r)
}
