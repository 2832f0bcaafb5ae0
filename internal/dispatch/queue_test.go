package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Name(t *testing.T) {
	q := New("overdrive.test")
	defer q.Close()
	assert.Equal(t, "overdrive.test", q.Name())
}

func TestQueue_AsyncRunsInOrder(t *testing.T) {
	q := New("fifo")
	defer q.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, q.Async(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.True(t, q.Sync(func() {}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueue_SerialExecution(t *testing.T) {
	q := New("serial")
	defer q.Close()

	var running, maxRunning int
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		q.Async(func() {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	q.Sync(func() {})

	assert.Equal(t, 1, maxRunning, "work on one queue must never overlap")
}

func TestQueue_AsyncReturnsImmediately(t *testing.T) {
	q := New("nonblocking")
	defer q.Close()

	release := make(chan struct{})
	q.Async(func() { <-release })

	done := make(chan struct{})
	go func() {
		q.Async(func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Async blocked behind running work")
	}
	assert.Equal(t, 1, q.Pending())
	close(release)
}

func TestQueue_WorkCanEnqueueOntoItself(t *testing.T) {
	q := New("reentrant")
	defer q.Close()

	done := make(chan struct{})
	q.Async(func() {
		q.Async(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nested work never ran")
	}
}

func TestQueue_AsyncAfterWaitsForDelay(t *testing.T) {
	q := New("delayed")
	defer q.Close()

	const delay = 40 * time.Millisecond
	fired := make(chan time.Time, 1)
	start := time.Now()
	q.AsyncAfter(delay, func() { fired <- time.Now() })

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), delay)
	case <-time.After(time.Second):
		t.Fatal("delayed work never ran")
	}
}

func TestQueue_AsyncAfterZeroDoesNotRunInline(t *testing.T) {
	q := New("zero")
	defer q.Close()

	ran := false
	var mu sync.Mutex
	release := make(chan struct{})
	q.Async(func() { <-release })

	q.AfterFunc(0, func() {
		mu.Lock()
		ran = true
		mu.Unlock()
	})

	mu.Lock()
	assert.False(t, ran)
	mu.Unlock()

	close(release)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_CloseDrainsSubmittedWork(t *testing.T) {
	q := New("drain")

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		q.Async(func() {
			time.Sleep(time.Millisecond)
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 10, count)
}

func TestQueue_ClosedRejectsWork(t *testing.T) {
	q := New("closed")
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Async(func() { t.Error("must not run") }))
	assert.False(t, q.Sync(func() { t.Error("must not run") }))
}

func TestWorkQueue_FIFOAndReset(t *testing.T) {
	wq := newWorkQueue()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, wq.Enqueue(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, wq.Len())

	for {
		fn, ok := wq.TryDequeue()
		if !ok {
			break
		}
		fn()
	}
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, wq.Len())

	wq.Close()
	assert.True(t, wq.Closed())
	assert.False(t, wq.Enqueue(func() {}))

	// Wait on a closed queue never blocks.
	select {
	case <-wq.Wait():
	default:
		t.Fatal("Wait should return a closed channel after Close")
	}
}
