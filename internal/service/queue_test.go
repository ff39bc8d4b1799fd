package service

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestQueue_RunsOperationsOneAtATime(t *testing.T) {
	q := NewQueue(testLogger())
	defer q.Close()

	var running atomic.Int32
	var overlapped atomic.Bool

	var pendings []*Pending
	for i := 0; i < 20; i++ {
		pendings = append(pendings, q.Enqueue(func() (any, error) {
			if running.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil, nil
		}))
	}

	for _, p := range pendings {
		_, err := p.Wait()
		require.NoError(t, err)
	}
	assert.False(t, overlapped.Load(), "two operations ran concurrently")
}

func TestQueue_PreservesArrivalOrder(t *testing.T) {
	q := NewQueue(testLogger())
	defer q.Close()

	var mu sync.Mutex
	var order []int

	var pendings []*Pending
	for i := 0; i < 10; i++ {
		n := i
		pendings = append(pendings, q.Enqueue(func() (any, error) {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return n, nil
		}))
	}

	for i, p := range pendings {
		result, err := p.Wait()
		require.NoError(t, err)
		assert.Equal(t, i, result)
	}
	for i, n := range order {
		assert.Equal(t, i, n)
	}
}

func TestQueue_FailureDoesNotHaltLaterTasks(t *testing.T) {
	q := NewQueue(testLogger())
	defer q.Close()

	boom := errors.New("boom")
	failing := q.Enqueue(func() (any, error) {
		return nil, boom
	})
	next := q.Enqueue(func() (any, error) {
		return "ok", nil
	})

	_, err := failing.Wait()
	assert.ErrorIs(t, err, boom)

	result, err := next.Wait()
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestQueue_RecoversFromPanickingTask(t *testing.T) {
	q := NewQueue(testLogger())
	defer q.Close()

	panicking := q.Enqueue(func() (any, error) {
		panic("worker must survive this")
	})
	next := q.Enqueue(func() (any, error) {
		return 42, nil
	})

	_, err := panicking.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task panic")

	result, err := next.Wait()
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestQueue_CloseDrainsPendingWork(t *testing.T) {
	q := NewQueue(testLogger())

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		q.Enqueue(func() (any, error) {
			done.Add(1)
			return nil, nil
		})
	}

	q.Close()
	assert.Equal(t, int32(5), done.Load())
}
