package task

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/overdrive/internal/result"
)

// Task is a unit of asynchronous work.
//
// Run is invoked exactly once by the runtime. The task must eventually call
// f.Finish exactly once, either before Run returns or later from another
// goroutine.
type Task[T any] interface {
	Run(f Finisher[T])
}

// Finisher receives the single, final outcome of a task.
type Finisher[T any] interface {
	Finish(r result.Result[T])
}

// State is the lifecycle position of a started task.
type State int

const (
	// StatePending means the handle exists but Run has not been called.
	StatePending State = iota
	// StateRunning means Run was called and Finish has not been.
	StateRunning
	// StateFinished means Finish was called.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EventType distinguishes runtime trace entries.
type EventType string

const (
	// EventStarted is recorded immediately before Run is called.
	EventStarted EventType = "started"
	// EventFinished is recorded when Finish is called.
	EventFinished EventType = "finished"
)

// Event is one entry in the runtime trace.
type Event struct {
	Seq     int64
	Type    EventType
	TaskID  string
	Name    string
	Outcome string // result.Result String() form; empty for started events
	At      time.Time
}

// Runtime starts tasks and keeps the ordered trace of their lifecycle events.
type Runtime struct {
	clock  *Clock
	ids    IDGenerator
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	trace []Event
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// WithIDGenerator sets the task ID source. The default is UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(rt *Runtime) {
		if g != nil {
			rt.ids = g
		}
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(c *Clock) Option {
	return func(rt *Runtime) {
		if c != nil {
			rt.clock = c
		}
	}
}

// NewRuntime creates a runtime with the given options.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Trace returns a copy of the events recorded so far, in seq order.
func (rt *Runtime) Trace() []Event {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]Event, len(rt.trace))
	copy(out, rt.trace)
	return out
}

// record stamps ev with the next seq and appends it under the trace lock,
// so trace order and seq order always agree.
func (rt *Runtime) record(ev Event) Event {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	ev.Seq = rt.clock.Next()
	ev.At = rt.now()
	rt.trace = append(rt.trace, ev)
	return ev
}

// Start hands t to the runtime and calls its Run hook.
//
// name labels the task in traces and logs and may be empty. The returned
// handle observes the task; for a task that finishes synchronously it is
// already Finished when Start returns.
func Start[T any](rt *Runtime, name string, t Task[T]) *Handle[T] {
	h := &Handle[T]{
		id:    rt.ids.Generate(),
		name:  name,
		rt:    rt,
		state: StatePending,
		done:  make(chan struct{}),
	}

	ev := rt.record(Event{Type: EventStarted, TaskID: h.id, Name: name})

	h.mu.Lock()
	h.state = StateRunning
	h.startSeq = ev.Seq
	h.startedAt = ev.At
	h.mu.Unlock()

	rt.logger.Debug("task started", "task_id", h.id, "name", name, "seq", ev.Seq)

	t.Run(h)
	return h
}

// Handle observes a started task and is the Finisher passed to its Run hook.
type Handle[T any] struct {
	id   string
	name string
	rt   *Runtime
	done chan struct{}

	mu         sync.Mutex
	state      State
	res        result.Result[T]
	startSeq   int64
	finishSeq  int64
	startedAt  time.Time
	finishedAt time.Time
	thens      []func(result.Result[T])
}

// ID returns the runtime-assigned task ID.
func (h *Handle[T]) ID() string { return h.id }

// Name returns the label given to Start.
func (h *Handle[T]) Name() string { return h.name }

// Finish records the task's final result.
//
// Panics if called more than once.
func (h *Handle[T]) Finish(r result.Result[T]) {
	h.mu.Lock()
	if h.state == StateFinished {
		h.mu.Unlock()
		panic(fmt.Sprintf("task: Finish called twice for task %s", h.id))
	}
	h.state = StateFinished
	h.res = r
	h.mu.Unlock()

	ev := h.rt.record(Event{Type: EventFinished, TaskID: h.id, Name: h.name, Outcome: r.String()})

	h.mu.Lock()
	h.finishSeq = ev.Seq
	h.finishedAt = ev.At
	thens := h.thens
	h.thens = nil
	h.mu.Unlock()

	h.rt.logger.Debug("task finished",
		"task_id", h.id,
		"name", h.name,
		"seq", ev.Seq,
		"outcome", ev.Outcome,
	)

	close(h.done)
	for _, fn := range thens {
		fn(r)
	}
}

// Then registers a continuation that runs after the task finishes.
//
// Continuations run on the goroutine that called Finish, after Done is
// closed. If the task already finished, fn runs immediately on the caller's
// goroutine.
func (h *Handle[T]) Then(fn func(result.Result[T])) {
	h.mu.Lock()
	if h.state != StateFinished {
		h.thens = append(h.thens, fn)
		h.mu.Unlock()
		return
	}
	r := h.res
	h.mu.Unlock()

	// Finish may still be between publishing state and draining thens;
	// wait for Done so fn never runs ahead of the finished event.
	<-h.done
	fn(r)
}

// Done returns a channel closed when the task finishes.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// State returns the current lifecycle state.
func (h *Handle[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Result returns the final result and true once the task has finished.
func (h *Handle[T]) Result() (result.Result[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateFinished {
		return result.Result[T]{}, false
	}
	return h.res, true
}

// Await blocks until the task finishes or ctx is done.
func (h *Handle[T]) Await(ctx context.Context) (result.Result[T], error) {
	select {
	case <-h.done:
		r, _ := h.Result()
		return r, nil
	case <-ctx.Done():
		return result.Result[T]{}, fmt.Errorf("await task %s: %w", h.id, ctx.Err())
	}
}

// StartSeq returns the seq of the started event.
func (h *Handle[T]) StartSeq() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startSeq
}

// FinishSeq returns the seq of the finished event, or 0 if not finished.
func (h *Handle[T]) FinishSeq() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finishSeq
}

// Elapsed returns the wall time between start and finish,
// or 0 if the task has not finished.
func (h *Handle[T]) Elapsed() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finishedAt.IsZero() {
		return 0
	}
	return h.finishedAt.Sub(h.startedAt)
}
