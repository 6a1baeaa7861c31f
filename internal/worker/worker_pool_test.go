package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasksBeforeStop(t *testing.T) {
	pool := NewWorkerPool(3, 5, zerolog.Nop())
	pool.Start()

	var done atomic.Int32
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(context.Background(), func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}))
	}
	pool.Stop()

	assert.Equal(t, int32(50), done.Load())
	assert.Equal(t, 0, pool.ActiveWorkers())
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	pool := NewWorkerPool(1, 1, zerolog.Nop())
	pool.Start()

	var done atomic.Bool
	require.NoError(t, pool.Submit(context.Background(), func() { panic("boom") }))
	require.NoError(t, pool.Submit(context.Background(), func() { done.Store(true) }))
	pool.Stop()

	assert.True(t, done.Load())
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, 1, zerolog.Nop())
	pool.Start()
	pool.Stop()
	pool.Stop()

	assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolStopped)
}

func TestWorkerPool_SubmitHonoursContext(t *testing.T) {
	pool := NewWorkerPool(1, 1, zerolog.Nop())
	pool.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(context.Background(), func() {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Submit(ctx, func() {}), context.DeadlineExceeded)
	assert.Equal(t, 1, pool.QueueLength())

	close(release)
	pool.Stop()
}
