package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/event"
	"github.com/shashiranjanraj/shopfront/pkg/workerpool"
	"github.com/stretchr/testify/assert"
)

type cartPaid struct{ CartID string }

func (cartPaid) EventName() string { return "cart.paid" }

func TestPublishSyncListeners(t *testing.T) {
	bus := event.NewBus(nil)
	var got []string
	bus.Listen("cart.paid", func(_ context.Context, e event.Event) error {
		got = append(got, e.(cartPaid).CartID)
		return nil
	})
	bus.Listen("product.changed", func(context.Context, event.Event) error {
		t.Error("unrelated listener must not run")
		return nil
	})

	assert.NoError(t, bus.Publish(context.Background(), cartPaid{CartID: "c-1"}))
	assert.Equal(t, []string{"c-1"}, got)
}

func TestPublishJoinsErrors(t *testing.T) {
	bus := event.NewBus(nil)
	boom := errors.New("boom")
	bus.Listen("cart.paid", func(context.Context, event.Event) error { return boom })

	err := bus.Publish(context.Background(), cartPaid{})
	assert.ErrorIs(t, err, boom)
}

func TestAsyncListenersRunOnPool(t *testing.T) {
	pool := workerpool.New(2, 0)
	bus := event.NewBus(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	bus.ListenAsync("cart.paid", func(ctx context.Context, e event.Event) error {
		defer wg.Done()
		assert.NoError(t, ctx.Err())
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, bus.Publish(ctx, cartPaid{CartID: "c-2"}))
	cancel()

	wg.Wait()
	pool.Shutdown()
}

func TestNilBusIsNoop(t *testing.T) {
	var bus *event.Bus
	assert.NoError(t, bus.Publish(context.Background(), cartPaid{}))
}
