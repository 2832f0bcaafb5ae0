package testutil

import (
	"sync"
	"time"

	"github.com/roach88/overdrive/internal/result"
)

// Delivery is one call to Recorder.Finish.
type Delivery[T any] struct {
	Result result.Result[T]
	At     time.Time
}

// Recorder is a task.Finisher that records every delivery it receives.
//
// It stands in for the runtime when a test drives a harness task's Run hook
// directly. Unlike task.Handle it does not panic on a second Finish, so a
// test can count deliveries.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder[T any] struct {
	mu         sync.Mutex
	deliveries []Delivery[T]
	first      chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{first: make(chan struct{})}
}

// Finish records r.
func (rec *Recorder[T]) Finish(r result.Result[T]) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.deliveries = append(rec.deliveries, Delivery[T]{Result: r, At: time.Now()})
	if len(rec.deliveries) == 1 {
		close(rec.first)
	}
}

// Count returns the number of deliveries so far.
func (rec *Recorder[T]) Count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.deliveries)
}

// Deliveries returns a copy of all deliveries in arrival order.
func (rec *Recorder[T]) Deliveries() []Delivery[T] {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]Delivery[T], len(rec.deliveries))
	copy(out, rec.deliveries)
	return out
}

// First returns a channel closed on the first delivery.
func (rec *Recorder[T]) First() <-chan struct{} {
	return rec.first
}

// WaitFirst blocks until the first delivery or timeout.
// Returns the delivery and true, or a zero Delivery and false on timeout.
func (rec *Recorder[T]) WaitFirst(timeout time.Duration) (Delivery[T], bool) {
	select {
	case <-rec.first:
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.deliveries[0], true
	case <-time.After(timeout):
		return Delivery[T]{}, false
	}
}
