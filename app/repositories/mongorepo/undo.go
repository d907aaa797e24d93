package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// undoLog collects compensating writes for a unit of work that runs
// without a server-side transaction.
type undoLog struct {
	mu  sync.Mutex
	ops []func(ctx context.Context) error
}

type undoKey struct{}

func undoFrom(ctx context.Context) *undoLog {
	l, _ := ctx.Value(undoKey{}).(*undoLog)
	return l
}

// onRollback registers op to run if the surrounding unit of work fails.
// Outside withUndo it does nothing.
func onRollback(ctx context.Context, op func(ctx context.Context) error) {
	l := undoFrom(ctx)
	if l == nil {
		return
	}
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

// withUndo runs fn and, when it fails, replays the registered ops in
// reverse order. The ops run even if ctx was cancelled.
func withUndo(ctx context.Context, fn func(ctx context.Context) error) error {
	l := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, l))
	if err == nil {
		return nil
	}

	undoCtx := context.WithoutCancel(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	var failed []error
	for i := len(l.ops) - 1; i >= 0; i-- {
		if uerr := l.ops[i](undoCtx); uerr != nil {
			failed = append(failed, uerr)
		}
	}
	if len(failed) > 0 {
		return errors.Join(err, fmt.Errorf("mongorepo: compensate: %w", errors.Join(failed...)))
	}
	return err
}
