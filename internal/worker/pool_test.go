package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool(t *testing.T) {
	pool := NewPool(10)
	assert.NotNil(t, pool)
	assert.Equal(t, 0, pool.GetWorkerCount())
}

func TestPoolStart(t *testing.T) {
	pool := NewPool(10)

	require.NoError(t, pool.Start(context.Background(), 4))
	assert.Equal(t, 4, pool.GetWorkerCount())

	assert.ErrorIs(t, pool.Start(context.Background(), 2), ErrPoolStarted)
	pool.Stop()
}

func TestSubmitBeforeStart(t *testing.T) {
	pool := NewPool(1)
	err := pool.Submit(Task{ID: 1, Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolNotStarted)
}

func TestSubmitAfterStop(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Start(context.Background(), 1))
	pool.Stop()

	err := pool.Submit(Task{ID: 1, Fn: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestEveryTaskReportsOnce(t *testing.T) {
	const n = 25
	pool := NewPool(n)
	require.NoError(t, pool.Start(context.Background(), 4))

	var ran int32
	for i := 0; i < n; i++ {
		i := i
		require.NoError(t, pool.Submit(Task{ID: i, Fn: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			if i%5 == 0 {
				return errors.New("boom")
			}
			return nil
		}}))
	}
	pool.Stop()

	seen := make(map[int]bool)
	failed := 0
	for {
		res, err := pool.ReceiveResult()
		if errors.Is(err, ErrPoolClosed) {
			break
		}
		require.NoError(t, err)
		assert.False(t, seen[res.ID], "duplicate result for task %d", res.ID)
		seen[res.ID] = true
		if res.Err != nil {
			failed++
		}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, 5, failed)
	assert.Equal(t, int32(n), atomic.LoadInt32(&ran))
}

func TestCancelledContextSkipsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(3)
	require.NoError(t, pool.Start(ctx, 1))
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(Task{ID: i, Fn: func(context.Context) error {
			t.Error("task should not run")
			return nil
		}}))
	}
	pool.Stop()

	for i := 0; i < 3; i++ {
		res, err := pool.ReceiveResult()
		require.NoError(t, err)
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}

func TestTaskTimeout(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Start(context.Background(), 1))
	require.NoError(t, pool.Submit(Task{ID: 7, Timeout: 10 * time.Millisecond, Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	res, err := pool.ReceiveResult()
	require.NoError(t, err)
	assert.Equal(t, 7, res.ID)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	pool.Stop()
}

func TestPanicBecomesError(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Start(context.Background(), 1))
	require.NoError(t, pool.Submit(Task{ID: 1, Fn: func(context.Context) error { panic("bad model") }}))

	res, err := pool.ReceiveResult()
	require.NoError(t, err)
	assert.ErrorContains(t, res.Err, "bad model")
	pool.Stop()
}
