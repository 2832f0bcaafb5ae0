// Package testutil provides the shared base for harness-driven tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/overdrive/internal/dispatch"
	"github.com/roach88/overdrive/internal/result"
	"github.com/roach88/overdrive/internal/task"
)

// TestCase is the per-test base every harness test builds on.
//
// It owns one named dispatch.Queue for work that must run off the test
// goroutine, and one task.Runtime with sequential task IDs so traces are
// stable across runs. Both are torn down by t.Cleanup.
type TestCase struct {
	T       testing.TB
	Queue   *dispatch.Queue
	Runtime *task.Runtime
	Logger  *slog.Logger
}

// NewTestCase creates the execution context for t.
//
// The queue is named after the test, e.g. "overdrive.TestDelayed/zero".
func NewTestCase(t testing.TB) *TestCase {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	q := dispatch.New("overdrive."+t.Name(), dispatch.WithLogger(logger))
	t.Cleanup(q.Close)

	return &TestCase{
		T:     t,
		Queue: q,
		Runtime: task.NewRuntime(
			task.WithLogger(logger),
			task.WithIDGenerator(task.NewSequentialGenerator("task")),
		),
		Logger: logger,
	}
}

// DefaultAwaitTimeout bounds Await calls that do not pass their own timeout.
const DefaultAwaitTimeout = 5 * time.Second

// Await waits for h to finish and fails the test if it does not within
// timeout. A zero timeout means DefaultAwaitTimeout.
func Await[T any](t testing.TB, h *task.Handle[T], timeout time.Duration) result.Result[T] {
	t.Helper()

	if timeout <= 0 {
		timeout = DefaultAwaitTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r, err := h.Await(ctx)
	require.NoError(t, err, "task %s (%s) did not finish within %s", h.ID(), h.Name(), timeout)
	return r
}
