package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ReturnsResult(t *testing.T) {
	pool := NewPool(2)
	defer pool.Close()

	future := Submit(pool, func() (int, error) {
		return 42, nil
	})

	val, err := future.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.True(t, future.Done())
}

func TestSubmit_ReturnsError(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	wantErr := errors.New("boom")
	future := Submit(pool, func() (string, error) {
		return "", wantErr
	})

	_, err := future.Wait(t.Context())
	assert.ErrorIs(t, err, wantErr)
}

func TestSubmit_FIFOWithSingleWorker(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	var order []int
	futures := make([]*Future[int], 0, 5)
	for i := range 5 {
		futures = append(futures, Submit(pool, func() (int, error) {
			order = append(order, i)
			return i, nil
		}))
	}

	for i, future := range futures {
		val, err := future.Wait(t.Context())
		require.NoError(t, err)
		assert.Equal(t, i, val)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestSubmit_PanicIsCaptured(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	future := Submit(pool, func() (int, error) {
		panic("kaboom")
	})

	_, err := future.Wait(t.Context())
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)

	// The worker survived the panic and keeps serving tasks.
	val, err := Submit(pool, func() (int, error) { return 7, nil }).Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 7, val)
}

func TestClose_DrainsQueuedTasks(t *testing.T) {
	pool := NewPool(2)

	var completed atomic.Int64
	futures := make([]*Future[struct{}], 0, 20)
	for range 20 {
		futures = append(futures, Submit(pool, func() (struct{}, error) {
			time.Sleep(time.Millisecond)
			completed.Add(1)
			return struct{}{}, nil
		}))
	}

	require.NoError(t, pool.Close())
	assert.Equal(t, int64(20), completed.Load())

	for _, future := range futures {
		assert.True(t, future.Done())
	}
}

func TestSubmit_AfterCloseResolvesWithError(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Close())

	future := Submit(pool, func() (int, error) { return 1, nil })
	require.True(t, future.Done())

	_, err := future.Wait(t.Context())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestWait_ContextCancelAbandonsWait(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()

	release := make(chan struct{})
	future := Submit(pool, func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := future.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The task itself was not cancelled and still completes.
	close(release)
	val, err := future.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestNewPool_DefaultsWorkers(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()
	assert.Positive(t, pool.Workers())
}
