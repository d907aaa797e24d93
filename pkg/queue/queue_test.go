package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var handled atomic.Int32

type countJob struct {
	Label string `json:"label"`
}

func (j *countJob) JobName() string { return "count" }

func (j *countJob) Handle(context.Context) error {
	handled.Add(1)
	return nil
}

type brokenJob struct{}

func (brokenJob) JobName() string { return "broken" }

func (*brokenJob) Handle(context.Context) error { return errors.New("smtp down") }

type recordingStore struct {
	mu   sync.Mutex
	rows []queue.FailedJobRecord
}

func (s *recordingStore) Save(_ context.Context, rec *queue.FailedJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *rec)
	return nil
}

func newManager() (*queue.Manager, *queue.MemoryDriver) {
	d := queue.NewMemoryDriver()
	m := queue.New(d).SetBackoff(func(int) time.Duration { return 0 })
	m.Register("count", func() queue.Job { return &countJob{} })
	m.Register("broken", func() queue.Job { return &brokenJob{} })
	return m, d
}

func popNow(t *testing.T, d *queue.MemoryDriver) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	raw, err := d.Pop(ctx)
	require.NoError(t, err)
	return raw
}

func TestDispatchAndProcess(t *testing.T) {
	m, d := newManager()
	before := handled.Load()

	require.NoError(t, m.Dispatch(context.Background(), &countJob{Label: "a"}))
	assert.Equal(t, 1, d.Len())

	m.Process(context.Background(), popNow(t, d))
	assert.Equal(t, before+1, handled.Load())
	assert.Empty(t, m.Failed())
}

func TestRetryThenFail(t *testing.T) {
	m, d := newManager()
	store := &recordingStore{}
	m.SetMaxAttempts(2).UseStore(store)

	require.NoError(t, m.Dispatch(context.Background(), &brokenJob{}))
	m.Process(context.Background(), popNow(t, d))

	require.Equal(t, 1, d.Len(), "first failure is requeued")
	assert.Empty(t, m.Failed())

	m.Process(context.Background(), popNow(t, d))
	assert.Equal(t, 0, d.Len())

	failed := m.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].Type)
	assert.Equal(t, 2, failed[0].Attempts)
	assert.EqualError(t, failed[0].Err, "smtp down")

	require.Len(t, store.rows, 1)
	assert.Equal(t, "broken", store.rows[0].JobType)
	assert.Equal(t, "failed_jobs", store.rows[0].TableName())
}

func TestUnknownJobFailsImmediately(t *testing.T) {
	d := queue.NewMemoryDriver()
	m := queue.New(d)

	require.NoError(t, m.Dispatch(context.Background(), &countJob{}))
	m.Process(context.Background(), popNow(t, d))

	failed := m.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, queue.ErrUnknownJob)
	assert.Equal(t, 0, d.Len())
}

func TestWorkers(t *testing.T) {
	m, _ := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	m.StartWorkers(ctx, 2)

	before := handled.Load()
	for i := 0; i < 10; i++ {
		require.NoError(t, m.Dispatch(ctx, &countJob{}))
	}
	assert.Eventually(t, func() bool { return handled.Load() >= before+10 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	m.Wait()
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriverSize(1)
	require.NoError(t, d.Push(context.Background(), []byte("a")))
	assert.ErrorIs(t, d.Push(context.Background(), []byte("b")), queue.ErrQueueFull)
}

func TestExponentialBackoff(t *testing.T) {
	b := queue.Exponential(time.Second, 5*time.Second)
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 4*time.Second, b(3))
	assert.Equal(t, 5*time.Second, b(4))
}
