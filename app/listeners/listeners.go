// Package listeners connects domain events to their side effects: order
// notifications on the queue, the admin SSE stream and the product feed.
package listeners

import (
	"context"
	"fmt"

	"github.com/shashiranjanraj/shopfront/app/events"
	"github.com/shashiranjanraj/shopfront/app/jobs"
	"github.com/shashiranjanraj/shopfront/pkg/event"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/queue"
)

// Dispatcher queues jobs; *queue.Manager satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}

// Broadcaster reaches every realtime client; *ws.Hub satisfies it.
type Broadcaster interface {
	Publish(kind string, data any) error
}

// TopicPublisher reaches the subscribers of one topic; *sse.Broker
// satisfies it.
type TopicPublisher interface {
	Publish(topic, event string, data any) error
}

// Deps may leave any field nil to switch that side effect off.
type Deps struct {
	Queue  Dispatcher
	Feed   Broadcaster
	Stream TopicPublisher
}

// Register attaches the listeners to bus. The realtime pushes never block,
// so they run inline; the queue dispatch runs on the bus worker pool.
func Register(bus *event.Bus, d Deps) {
	if d.Stream != nil {
		bus.Listen(events.CartPaidName, func(ctx context.Context, e event.Event) error {
			paid, ok := e.(events.CartPaid)
			if !ok {
				return fmt.Errorf("listeners: unexpected %T", e)
			}
			if err := d.Stream.Publish(events.StoreTopic(paid.StoreID), events.CartPaidName, paid); err != nil {
				logger.WithCtx(ctx).Warn("listeners: paid stream", "error", err)
			}
			return nil
		})
	}

	if d.Queue != nil {
		bus.ListenAsync(events.CartPaidName, func(ctx context.Context, e event.Event) error {
			paid, ok := e.(events.CartPaid)
			if !ok {
				return fmt.Errorf("listeners: unexpected %T", e)
			}
			if err := d.Queue.Dispatch(ctx, jobs.NewOrderNotification(paid)); err != nil {
				return fmt.Errorf("listeners: dispatch order notification for %s: %w", paid.CartID, err)
			}
			return nil
		})
	}

	if d.Feed != nil {
		bus.Listen(events.ProductChangedName, func(ctx context.Context, e event.Event) error {
			if err := d.Feed.Publish(events.ProductChangedName, e); err != nil {
				logger.WithCtx(ctx).Warn("listeners: product feed", "error", err)
			}
			return nil
		})
	}
}
