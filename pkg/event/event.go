// Package event is the in-process event bus. Services publish domain
// events after their writes commit; listeners (realtime feeds, the queue)
// subscribe by name.
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/workerpool"
)

// Event is anything with a stable name.
type Event interface {
	EventName() string
}

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

// Bus dispatches events to listeners. Async listeners run on a bounded
// worker pool so a slow webhook cannot pile up goroutines.
type Bus struct {
	mu    sync.RWMutex
	sync  map[string][]Handler
	async map[string][]Handler
	pool  *workerpool.Pool
}

// NewBus returns a bus whose async listeners run on pool. A nil pool runs
// async listeners inline.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{
		sync:  map[string][]Handler{},
		async: map[string][]Handler{},
		pool:  pool,
	}
}

// Listen registers h to run inside Publish, before it returns.
func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync[name] = append(b.sync[name], h)
}

// ListenAsync registers h to run on the worker pool.
func (b *Bus) ListenAsync(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.async[name] = append(b.async[name], h)
}

// Publish runs the synchronous listeners and schedules the async ones.
// Errors from synchronous listeners are joined and returned; async errors
// are logged.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if b == nil {
		return nil
	}
	name := e.EventName()

	b.mu.RLock()
	syncHs := append([]Handler(nil), b.sync[name]...)
	asyncHs := append([]Handler(nil), b.async[name]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range syncHs {
		if err := h(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", name, err))
		}
	}

	detached := context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx)
	for _, h := range asyncHs {
		h := h
		task := func() {
			if err := h(detached, e); err != nil {
				log.Error("async listener failed", "event", name, "error", err)
			}
		}
		if b.pool == nil {
			task()
			continue
		}
		if err := b.pool.Submit(task); err != nil {
			log.Warn("event dropped", "event", name, "error", err)
		}
	}

	return errors.Join(errs...)
}

// Reset removes every listener.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync = map[string][]Handler{}
	b.async = map[string][]Handler{}
}
