package queue

import (
	"context"
	"errors"
)

var ErrQueueFull = errors.New("queue: memory queue is full")

// MemoryDriver is an in-process buffered queue. Jobs are lost on restart.
type MemoryDriver struct {
	ch chan []byte
}

func NewMemoryDriver() *MemoryDriver {
	return NewMemoryDriverSize(1000)
}

func NewMemoryDriverSize(n int) *MemoryDriver {
	return &MemoryDriver{ch: make(chan []byte, n)}
}

// Push never blocks; a full buffer is an error.
func (d *MemoryDriver) Push(_ context.Context, payload []byte) error {
	select {
	case d.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.ch:
		return payload, nil
	}
}

// Len reports how many jobs are waiting.
func (d *MemoryDriver) Len() int { return len(d.ch) }
