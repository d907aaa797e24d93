package workerpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitWaitRunsEverything(t *testing.T) {
	pool := workerpool.New(4, 0)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		require.NoError(t, pool.SubmitWait(func() {
			defer wg.Done()
			count.Add(1)
		}))
	}

	wg.Wait()
	assert.EqualValues(t, n, count.Load())
}

func TestSubmitReportsFull(t *testing.T) {
	pool := workerpool.New(1, 2)

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() {
		close(started)
		<-blocker
	}))
	<-started

	require.NoError(t, pool.Submit(func() {}))
	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)

	close(blocker)
	pool.Shutdown()
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2, 0)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(func() {}), workerpool.ErrPoolClosed)
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	pool := workerpool.New(1, 0)
	defer pool.Shutdown()

	require.NoError(t, pool.SubmitWait(func() { panic("listener bug") }))

	done := make(chan struct{})
	require.NoError(t, pool.SubmitWait(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestShutdownDrainsQueue(t *testing.T) {
	pool := workerpool.New(2, 50)
	var count atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	pool.Shutdown()
	assert.EqualValues(t, 50, count.Load())
}
