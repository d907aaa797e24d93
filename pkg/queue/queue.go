// Package queue runs background jobs. Jobs are JSON-encoded onto a driver
// (memory or Redis) and decoded by name on the worker side, so a job type
// must be registered before workers can run it.
//
//	q := queue.New(queue.NewMemoryDriver())
//	q.Register(jobs.OrderNotificationName, func() queue.Job { return &jobs.SendOrderNotification{} })
//	q.Dispatch(ctx, &jobs.SendOrderNotification{CartID: id})
//	q.StartWorkers(ctx, 2)
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
)

// Job is one unit of background work.
type Job interface {
	Handle(ctx context.Context) error
}

// Named jobs choose their own registry key; others are keyed by %T.
type Named interface {
	JobName() string
}

// Driver stores encoded jobs until a worker pops them.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks until a payload is ready. (nil, nil) means nothing arrived
	// before the driver's poll timeout.
	Pop(ctx context.Context) ([]byte, error)
}

// FailedJob is a job that exhausted its attempts.
type FailedJob struct {
	Type     string
	Payload  []byte
	Err      error
	FailedAt time.Time
	Attempts int
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

var ErrUnknownJob = errors.New("queue: unknown job type")

// Manager dispatches and works jobs over one driver.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	store    FailedStore

	maxAttempts int
	backoff     func(attempt int) time.Duration
	wg          sync.WaitGroup
}

func New(d Driver) *Manager {
	return &Manager{
		driver:      d,
		registry:    map[string]func() Job{},
		maxAttempts: 3,
		backoff:     Exponential(time.Second, 30*time.Second),
	}
}

// Exponential doubles the wait after each failed attempt, up to max.
func Exponential(base, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt && d < max; i++ {
			d *= 2
		}
		if d > max {
			d = max
		}
		return d
	}
}

// SetMaxAttempts sets how many times a job runs before it is recorded as
// failed.
func (m *Manager) SetMaxAttempts(n int) *Manager {
	if n > 0 {
		m.maxAttempts = n
	}
	return m
}

func (m *Manager) SetBackoff(fn func(attempt int) time.Duration) *Manager {
	m.backoff = fn
	return m
}

// Register makes a job type decodable by name.
func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// NameOf returns the registry key of job.
func NameOf(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

// Dispatch encodes job and pushes it onto the driver.
func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	name := NameOf(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	return m.push(ctx, envelope{Type: name, Payload: payload, Attempt: 1})
}

// DispatchAfter pushes job once delay has passed or ctx is done, whichever
// is first. A cancelled ctx drops the job.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) {
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := m.Dispatch(context.WithoutCancel(ctx), job); err != nil {
			logger.Error("queue: delayed dispatch failed", "type", NameOf(job), "error", err)
		}
	}()
}

func (m *Manager) push(ctx context.Context, env envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}
	m.mu.RLock()
	d := m.driver
	m.mu.RUnlock()
	return d.Push(ctx, raw)
}

// StartWorkers launches n workers that run until ctx is done. Wait blocks
// until they have all returned.
func (m *Manager) StartWorkers(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
}

func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}
		m.Process(ctx, raw)
	}
}

// Process runs one encoded job. A failure is re-queued after the backoff
// until the attempts run out, then recorded as failed.
func (m *Manager) Process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}
	if env.Attempt < 1 {
		env.Attempt = 1
	}

	start := time.Now()
	err := m.run(ctx, env)
	if err == nil {
		metrics.RecordQueueJob(env.Type, "processed", start)
		logger.Info("queue: job processed", "type", env.Type, "attempt", env.Attempt)
		return
	}
	if errors.Is(err, ErrUnknownJob) || env.Attempt >= m.maxAttempts {
		metrics.RecordQueueJob(env.Type, "failed", start)
		logger.Error("queue: job failed", "type", env.Type, "attempts", env.Attempt, "error", err)
		m.recordFailed(ctx, env, err)
		return
	}

	metrics.RecordQueueJob(env.Type, "retried", start)
	wait := m.backoff(env.Attempt)
	logger.Warn("queue: job failed, retrying",
		"type", env.Type, "attempt", env.Attempt, "retry_in", wait.String(), "error", err)

	env.Attempt++
	retry := func() {
		if err := m.push(context.WithoutCancel(ctx), env); err != nil {
			logger.Error("queue: requeue failed", "type", env.Type, "error", err)
			m.recordFailed(ctx, env, err)
		}
	}
	if wait <= 0 {
		retry()
		return
	}
	time.AfterFunc(wait, retry)
}

func (m *Manager) run(ctx context.Context, env envelope) (err error) {
	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, env.Type)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnknownJob, env.Type, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: job %s panicked: %v", env.Type, r)
		}
	}()
	return job.Handle(ctx)
}

// Failed returns the failures recorded since start.
func (m *Manager) Failed() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}
