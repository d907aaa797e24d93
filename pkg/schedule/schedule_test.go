package schedule_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalAndImmediate(t *testing.T) {
	s := schedule.New()
	var hourly, eager atomic.Int32
	s.Hourly("hourly", func(context.Context) error { hourly.Add(1); return nil })
	s.Hourly("eager", func(context.Context) error { eager.Add(1); return nil }).Immediately()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	s.RunDue(ctx, t0)
	s.Wait()
	assert.Equal(t, int32(0), hourly.Load())
	assert.Equal(t, int32(1), eager.Load())

	s.RunDue(ctx, t0.Add(30*time.Minute))
	s.Wait()
	assert.Equal(t, int32(0), hourly.Load())
	assert.Equal(t, int32(1), eager.Load())

	s.RunDue(ctx, t0.Add(time.Hour))
	s.Wait()
	assert.Equal(t, int32(1), hourly.Load())
	assert.Equal(t, int32(2), eager.Load())
}

func TestWithoutOverlapping(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	var runs atomic.Int32
	s.Every(time.Minute, "slow", func(context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}).Immediately().WithoutOverlapping()

	t0 := time.Now()
	s.RunDue(context.Background(), t0)
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.RunDue(context.Background(), t0.Add(2*time.Minute))
	close(release)
	s.Wait()
	assert.Equal(t, int32(1), runs.Load())
}

func TestRunNowAndEntries(t *testing.T) {
	s := schedule.New()
	s.Daily("b", func(context.Context) error { return errors.New("boom") })
	s.Hourly("a", func(context.Context) error { return nil })

	names := []string{}
	for _, e := range s.Entries() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
	assert.EqualError(t, s.RunNow(context.Background(), "b"), "boom")
	assert.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestPanicsAreRecovered(t *testing.T) {
	s := schedule.New()
	s.Hourly("bad", func(context.Context) error { panic("oops") }).Immediately()
	s.RunDue(context.Background(), time.Now())
	s.Wait()
}
