package mongorepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRunsInReverseOnFailure(t *testing.T) {
	tx := &TxManager{}
	var order []string
	boom := errors.New("boom")

	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		onRollback(ctx, func(context.Context) error { order = append(order, "first"); return nil })
		// Nested units join the outer log.
		require.NoError(t, tx.WithTransaction(ctx, func(ctx context.Context) error {
			onRollback(ctx, func(context.Context) error { order = append(order, "second"); return nil })
			return nil
		}))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestUndoSkippedOnSuccess(t *testing.T) {
	tx := &TxManager{}
	ran := false

	err := tx.WithTransaction(context.Background(), func(ctx context.Context) error {
		onRollback(ctx, func(context.Context) error { ran = true; return nil })
		return nil
	})

	require.NoError(t, err)
	assert.False(t, ran)
}

func TestUndoSurvivesCancelAndReportsFailures(t *testing.T) {
	tx := &TxManager{}
	boom, stuck := errors.New("boom"), errors.New("write failed")
	ctx, cancel := context.WithCancel(context.Background())

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		onRollback(ctx, func(ctx context.Context) error {
			assert.NoError(t, ctx.Err())
			return stuck
		})
		cancel()
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, stuck)
}

func TestOnRollbackOutsideUnitIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		onRollback(context.Background(), func(context.Context) error { return nil })
	})
}
