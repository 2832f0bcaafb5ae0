// Package result provides the value-or-failure outcome of a unit of
// asynchronous work.
package result

import (
	"fmt"

	"github.com/roach88/overdrive/internal/taskerr"
)

// Result is either a success carrying a value of type T or a failure carrying
// a taskerr.Kind. Exactly one is present.
//
// Results are immutable. Use Success or Failure to build one; the zero value
// is not a valid Result and reports neither variant.
type Result[T any] struct {
	value T
	err   taskerr.Kind
	ok    bool
}

// Success creates a successful Result holding v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure creates a failed Result holding k.
//
// Panics if k is nil: a failure without a cause is a broken fixture.
func Failure[T any](k taskerr.Kind) Result[T] {
	if k == nil {
		panic("result: Failure called with nil taskerr.Kind")
	}
	return Result[T]{err: k}
}

// IsSuccess reports whether r is the success variant.
func (r Result[T]) IsSuccess() bool {
	return r.ok
}

// IsFailure reports whether r is the failure variant.
func (r Result[T]) IsFailure() bool {
	return !r.ok && r.err != nil
}

// Value returns the success value and true, or the zero T and false.
func (r Result[T]) Value() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Err returns the failure kind and true, or nil and false.
func (r Result[T]) Err() (taskerr.Kind, bool) {
	if r.ok || r.err == nil {
		return nil, false
	}
	return r.err, true
}

// Get returns the pair form used by ordinary Go call sites.
// A failure returns the zero T and its Kind as the error.
func (r Result[T]) Get() (T, error) {
	if r.ok {
		return r.value, nil
	}
	var zero T
	if r.err == nil {
		return zero, nil
	}
	return zero, r.err
}

// String renders r as success(v) or failure(msg).
func (r Result[T]) String() string {
	switch {
	case r.ok:
		return fmt.Sprintf("success(%v)", r.value)
	case r.err != nil:
		return fmt.Sprintf("failure(%s)", r.err.Error())
	default:
		return "invalid"
	}
}

// Match calls exactly one handler for r and returns its output.
//
// Match on the zero Result panics: it was never constructed.
func Match[T, R any](r Result[T], onSuccess func(T) R, onFailure func(taskerr.Kind) R) R {
	switch {
	case r.ok:
		return onSuccess(r.value)
	case r.err != nil:
		return onFailure(r.err)
	default:
		panic("result: Match on zero Result")
	}
}
