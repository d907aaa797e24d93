// Package repositories declares the storage contracts used by the services.
//
// Three backends implement them: gormrepo (sqlite, postgres, mysql,
// sqlserver), mongorepo and the in-memory store in this package. Every
// method takes a context; when the context was produced by
// TxManager.WithTransaction the call joins that transaction.
package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/app/models"
)

var (
	// ErrNotFound is returned when no row or document matches.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique key (email, product code,
	// open cart per user and store) is already taken.
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict is returned when a guarded write matched nothing: a cart
	// that is no longer in progress, or stock that ran out.
	ErrConflict = errors.New("conflict")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	All(ctx context.Context) ([]models.User, error)
}

type StoreRepository interface {
	Create(ctx context.Context, s *models.Store) error
	FindByID(ctx context.Context, id string) (*models.Store, error)
	All(ctx context.Context) ([]models.Store, error)
	Update(ctx context.Context, s *models.Store) error
}

// ProductFilter narrows List. Zero values match everything.
type ProductFilter struct {
	StoreID    string
	ActiveOnly bool
	Category   string
	Search     string
}

// Matches applies the filter to a single product.
func (f ProductFilter) Matches(p *models.Product) bool {
	if f.StoreID != "" && p.StoreID != f.StoreID {
		return false
	}
	if f.ActiveOnly && !p.Status {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Title), q) && !strings.Contains(strings.ToLower(p.Code), q) {
			return false
		}
	}
	return true
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	// List returns matching products, newest first.
	List(ctx context.Context, f ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, p *models.Product) error
	// DecrementStock removes qty units from an active product. It returns
	// ErrConflict when fewer than qty units are left.
	DecrementStock(ctx context.Context, id string, qty int) error
}

type CartRepository interface {
	// Create inserts an empty cart. ErrDuplicate means the user already
	// has an in-progress cart at that store.
	Create(ctx context.Context, c *models.Cart) error
	FindByID(ctx context.Context, id string) (*models.Cart, error)
	FindOpen(ctx context.Context, userID, storeID string) (*models.Cart, error)
	// ListByUser returns every cart of the user, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Cart, error)
	// ListPaidByStore returns the store's paid carts, most recently paid first.
	ListPaidByStore(ctx context.Context, storeID string) ([]models.Cart, error)
	// SaveItems replaces the line items of an in-progress cart. A paid
	// cart yields ErrConflict.
	SaveItems(ctx context.Context, c *models.Cart) error
	// MarkPaid flips an in-progress cart to paid. ErrConflict means it
	// was not in progress anymore.
	MarkPaid(ctx context.Context, id string, at time.Time) error
	// Delete removes an in-progress cart and its items.
	Delete(ctx context.Context, id string) error
	// DeleteAbandoned removes empty in-progress carts created before the
	// cutoff and reports how many went.
	DeleteAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// TxManager runs fn in one transaction. The ctx handed to fn must be
// passed to every repository call that should join it. Nested calls reuse
// the outer transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Users    UserRepository
	Stores   StoreRepository
	Products ProductRepository
	Carts    CartRepository
	Tx       TxManager

	// Ping reports backend liveness for /health.
	Ping func(ctx context.Context) error
	// Close releases the backend's connections.
	Close func(ctx context.Context) error
}

// Healthy calls Ping when the backend provides one.
func (r *Repositories) Healthy(ctx context.Context) error {
	if r == nil || r.Ping == nil {
		return nil
	}
	return r.Ping(ctx)
}

// Shutdown calls Close when the backend provides one.
func (r *Repositories) Shutdown(ctx context.Context) error {
	if r == nil || r.Close == nil {
		return nil
	}
	return r.Close(ctx)
}
