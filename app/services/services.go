// Package services holds the storefront's business rules. Controllers,
// the CLI and the scheduler all go through these types; none of them
// touch a repository directly.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/event"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/storage"
	"github.com/shashiranjanraj/shopfront/pkg/validate"
)

// Services bundles every service built over one repository set.
type Services struct {
	Auth     *AuthService
	Stores   *StoreService
	Products *ProductService
	Carts    *CartService
}

// New wires the services. bus and disk may be nil: events are then
// dropped and thumbnail uploads are refused.
func New(repos *repositories.Repositories, bus *event.Bus, disk storage.Disk) *Services {
	return &Services{
		Auth:     NewAuthService(repos),
		Stores:   NewStoreService(repos),
		Products: NewProductService(repos, bus, disk),
		Carts:    NewCartService(repos, bus),
	}
}

// check runs the struct validator and turns failures into a 400.
func check(in any) error {
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		return apperr.Validation(errs)
	}
	return nil
}

// missing maps ErrNotFound to a 404 with msg and wraps anything else.
func missing(err error, scope, msg string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return fmt.Errorf("%s: %w", scope, err)
}

func newID() string { return uuid.NewString() }

// publish fires e after a write committed. Listener failures never undo
// the write, so they are only logged.
func publish(ctx context.Context, bus *event.Bus, e event.Event) {
	if err := bus.Publish(ctx, e); err != nil {
		logger.WithCtx(ctx).Warn("event listener failed", "event", e.EventName(), "error", err)
	}
}
