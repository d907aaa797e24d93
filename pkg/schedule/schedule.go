// Package schedule runs recurring maintenance tasks on fixed intervals.
//
//	s := schedule.New()
//	s.Hourly("carts:purge-abandoned", purge).WithoutOverlapping()
//	s.Run(ctx) // blocks until ctx is done
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
)

// Task is one run of a scheduled job.
type Task func(ctx context.Context) error

// Entry is a registered task. Its options are set fluently after Every.
type Entry struct {
	name      string
	interval  time.Duration
	task      Task
	noOverlap bool
	immediate bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// WithoutOverlapping skips a tick while the previous run is still going.
func (e *Entry) WithoutOverlapping() *Entry {
	e.noOverlap = true
	return e
}

// Immediately makes the first tick run the task instead of waiting a full
// interval.
func (e *Entry) Immediately() *Entry {
	e.immediate = true
	return e
}

func (e *Entry) Name() string { return e.name }

func (e *Entry) Interval() time.Duration { return e.interval }

// Scheduler owns a set of entries.
type Scheduler struct {
	mu      sync.Mutex
	entries []*Entry
	tick    time.Duration
	wg      sync.WaitGroup
	started time.Time
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Every registers task to run every interval.
func (s *Scheduler) Every(interval time.Duration, name string, task Task) *Entry {
	e := &Entry{name: name, interval: interval, task: task}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return e
}

func (s *Scheduler) Hourly(name string, task Task) *Entry {
	return s.Every(time.Hour, name, task)
}

func (s *Scheduler) Daily(name string, task Task) *Entry {
	return s.Every(24*time.Hour, name, task)
}

// Entries lists the registered tasks sorted by name.
func (s *Scheduler) Entries() []*Entry {
	s.mu.Lock()
	out := append([]*Entry(nil), s.entries...)
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Run ticks until ctx is done, then waits for running tasks to return.
func (s *Scheduler) Run(ctx context.Context) {
	s.started = time.Now()
	logger.Info("schedule: started", "tasks", len(s.Entries()))

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.RunDue(ctx, now)
		}
	}
}

// RunDue starts every entry due at now. It does not wait for them.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	for _, e := range s.Entries() {
		if s.due(e, now) {
			s.start(ctx, e, now)
		}
	}
}

// RunNow runs the named task once, synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	for _, e := range s.Entries() {
		if e.name == name {
			return e.task(ctx)
		}
	}
	return fmt.Errorf("schedule: no task named %q", name)
}

// Wait blocks until every started task has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) due(e *Entry, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastRun.IsZero() {
		if e.immediate {
			return true
		}
		start := s.started
		if start.IsZero() {
			start = now
			s.started = now
		}
		return now.Sub(start) >= e.interval
	}
	return now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) start(ctx context.Context, e *Entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: previous run still going, skipping", "task", e.name)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: task panicked", "task", e.name, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		begin := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "task", e.name, "error", err)
			return
		}
		logger.Info("schedule: task done", "task", e.name, "duration_ms", time.Since(begin).Milliseconds())
	}()
}
