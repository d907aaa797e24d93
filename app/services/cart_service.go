package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopfront/app/events"
	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/shashiranjanraj/shopfront/pkg/collection"
	"github.com/shashiranjanraj/shopfront/pkg/event"
	"github.com/shashiranjanraj/shopfront/pkg/logger"
	"github.com/shashiranjanraj/shopfront/pkg/metrics"
	"github.com/shopspring/decimal"
)

var (
	errCartNotFound    = apperr.NotFound("cart not found")
	errCartLocked      = apperr.BadRequest("cannot modify a paid cart")
	errCartPaid        = apperr.BadRequest("cart is already paid")
	errCartEmpty       = apperr.BadRequest("cart is empty")
	errCartOpen        = apperr.Conflict("an in-progress cart already exists for this store")
	errOutOfStock      = apperr.BadRequest("product out of stock")
	errExceedsStock    = apperr.BadRequest("quantity exceeds available stock")
	errNotInCart       = apperr.NotFound("product not found in cart")
	errInsufficient    = apperr.Conflict("insufficient stock")
	errBadQuantity     = apperr.BadRequest("quantity must be an integer greater than or equal to 1")
	errNoWhatsApp      = apperr.NotFound("store has no WhatsApp number")
	errProductNotFound = apperr.NotFound("product not found")
)

// CartService owns the cart lifecycle: creation, line edits and checkout.
type CartService struct {
	repos *repositories.Repositories
	bus   *event.Bus
	now   func() time.Time
}

func NewCartService(repos *repositories.Repositories, bus *event.Bus) *CartService {
	return &CartService{repos: repos, bus: bus, now: func() time.Time { return time.Now().UTC() }}
}

// RemoveResult is what RemoveProduct leaves behind. Cart is nil when the
// last line went and the cart was deleted.
type RemoveResult struct {
	Cart    *models.Cart `json:"cart,omitempty"`
	Deleted bool         `json:"deleted"`
}

// CreateCart opens an empty cart for a shopper at a store.
func (s *CartService) CreateCart(ctx context.Context, userID, storeID string) (*models.Cart, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(storeID) == "" {
		return nil, apperr.BadRequest("storeId is required")
	}

	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, missing(err, "carts: create", "user not found")
	}
	if user.IsAdmin() {
		return nil, apperr.Forbidden("admins cannot have carts")
	}
	if _, err := s.repos.Stores.FindByID(ctx, storeID); err != nil {
		return nil, missing(err, "carts: create", "store not found")
	}

	cart := &models.Cart{
		ID:      newID(),
		UserID:  userID,
		StoreID: storeID,
		Status:  models.CartInProgress,
		Items:   []models.CartItem{},
	}
	err = s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := s.repos.Carts.FindOpen(ctx, userID, storeID)
		switch {
		case err == nil:
			return errCartOpen
		case !errors.Is(err, repositories.ErrNotFound):
			return fmt.Errorf("carts: create: %w", err)
		}
		if err := s.repos.Carts.Create(ctx, cart); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return errCartOpen
			}
			return fmt.Errorf("carts: create: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithCtx(ctx).Info("cart created", "cart_id", cart.ID, "store_id", storeID)
	return cart, nil
}

// AddProduct adds one unit of productID, appending a line when needed.
func (s *CartService) AddProduct(ctx context.Context, cartID, productID string) (*models.Cart, error) {
	var out *models.Cart
	err := s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, product, err := s.cartAndProduct(ctx, cartID, productID, errProductNotFound)
		if err != nil {
			return err
		}
		if !cart.InProgress() {
			return errCartLocked
		}

		stock := sellable(product)
		if line := cart.Item(productID); line != nil {
			if line.Quantity+1 > stock {
				return errExceedsStock
			}
			line.Quantity++
		} else {
			if stock < 1 {
				return errOutOfStock
			}
			cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: 1})
		}

		if err := s.saveItems(ctx, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	return out, err
}

// RemoveProduct drops a line. Removing the last line deletes the cart.
func (s *CartService) RemoveProduct(ctx context.Context, cartID, productID string) (*RemoveResult, error) {
	var out *RemoveResult
	err := s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.openCart(ctx, cartID)
		if err != nil {
			return err
		}
		if !cart.RemoveItem(productID) {
			return errNotInCart
		}

		if len(cart.Items) == 0 {
			if err := s.repos.Carts.Delete(ctx, cart.ID); err != nil {
				return s.cartWriteErr(err, "carts: remove product")
			}
			out = &RemoveResult{Deleted: true}
			return nil
		}
		if err := s.saveItems(ctx, cart); err != nil {
			return err
		}
		out = &RemoveResult{Cart: cart}
		return nil
	})
	return out, err
}

// UpdateQuantity sets a line's quantity outright.
func (s *CartService) UpdateQuantity(ctx context.Context, cartID, productID string, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, errBadQuantity
	}

	var out *models.Cart
	err := s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.openCart(ctx, cartID)
		if err != nil {
			return err
		}
		line := cart.Item(productID)
		if line == nil {
			return errNotInCart
		}
		product, err := s.repos.Products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.BadRequest("product not found")
			}
			return fmt.Errorf("carts: update quantity: %w", err)
		}
		if quantity > sellable(product) {
			return errExceedsStock
		}

		line.Quantity = quantity
		if err := s.saveItems(ctx, cart); err != nil {
			return err
		}
		out = cart
		return nil
	})
	return out, err
}

// DeleteCart removes an in-progress cart for good.
func (s *CartService) DeleteCart(ctx context.Context, cartID string) error {
	return s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.openCart(ctx, cartID)
		if err != nil {
			return err
		}
		if err := s.repos.Carts.Delete(ctx, cart.ID); err != nil {
			return s.cartWriteErr(err, "carts: delete")
		}
		logger.WithCtx(ctx).Info("cart deleted", "cart_id", cart.ID)
		return nil
	})
}

// PayCart checks out a cart. Stock for every line and the status flip
// commit together or not at all.
func (s *CartService) PayCart(ctx context.Context, cartID string) (*models.Cart, error) {
	var (
		paid     *models.Cart
		products map[string]models.Product
	)
	err := s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.repos.Carts.FindByID(ctx, cartID)
		if err != nil {
			return missing(err, "carts: pay", errCartNotFound.Message)
		}
		if !cart.InProgress() {
			return errCartPaid
		}
		if len(cart.Items) == 0 {
			return errCartEmpty
		}

		// Check every line before touching stock.
		products, err = s.productsByID(ctx, cart.ProductIDs())
		if err != nil {
			return err
		}
		for _, line := range cart.Items {
			p, ok := products[line.ProductID]
			if !ok {
				return apperr.BadRequest("product %s not found", line.ProductID)
			}
			if !p.Available(line.Quantity) {
				return apperr.BadRequest("insufficient stock for %s", p.Title)
			}
		}

		for _, line := range cart.Items {
			if err := s.repos.Products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, repositories.ErrConflict) || errors.Is(err, repositories.ErrNotFound) {
					return errInsufficient
				}
				return fmt.Errorf("carts: pay: decrement %s: %w", line.ProductID, err)
			}
		}

		at := s.now()
		if err := s.repos.Carts.MarkPaid(ctx, cart.ID, at); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return errCartPaid
			}
			return fmt.Errorf("carts: pay: %w", err)
		}
		cart.Status = models.CartPaid
		cart.PaidAt = &at
		paid = cart
		return nil
	})
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	metrics.CartsPaid.Inc()
	metrics.UnitsSold.Add(float64(paid.Units()))
	logger.WithCtx(ctx).Info("cart paid",
		"cart_id", paid.ID,
		"store_id", paid.StoreID,
		"units", paid.Units(),
		"total", paid.Total(products).StringFixed(2),
	)

	s.afterPay(ctx, paid, products)
	return paid, nil
}

// afterPay publishes the checkout and the stock it consumed.
func (s *CartService) afterPay(ctx context.Context, cart *models.Cart, products map[string]models.Product) {
	forgetCatalog(ctx)

	e := events.CartPaid{
		CartID:  cart.ID,
		UserID:  cart.UserID,
		StoreID: cart.StoreID,
		Total:   models.NewMoney(cart.Total(products)),
		PaidAt:  *cart.PaidAt,
	}
	for _, line := range cart.Items {
		p := products[line.ProductID]
		e.Items = append(e.Items, events.PaidLine{
			ProductID: p.ID,
			Title:     p.Title,
			Code:      p.Code,
			Quantity:  line.Quantity,
			Price:     models.NewMoney(p.Price),
		})
	}
	publish(ctx, s.bus, e)

	for _, line := range cart.Items {
		p := products[line.ProductID]
		p.Stock -= line.Quantity
		publish(ctx, s.bus, events.ProductChanged{Action: events.ProductStock, Product: p})
	}
}

// GetCart returns a cart with its lines.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.repos.Carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, missing(err, "carts: get", errCartNotFound.Message)
	}
	return cart, nil
}

// FindInProgress returns the shopper's open cart at a store.
func (s *CartService) FindInProgress(ctx context.Context, userID, storeID string) (*models.Cart, error) {
	cart, err := s.repos.Carts.FindOpen(ctx, userID, storeID)
	if err != nil {
		return nil, missing(err, "carts: find open", "no cart in progress for this store")
	}
	return cart, nil
}

// History lists every cart of a user, newest first.
func (s *CartService) History(ctx context.Context, userID string) ([]models.Cart, error) {
	carts, err := s.repos.Carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("carts: history: %w", err)
	}
	return carts, nil
}

// PaidForStore lists a store's paid carts, latest payment first.
func (s *CartService) PaidForStore(ctx context.Context, storeID string) ([]models.Cart, error) {
	if storeID == "" {
		return nil, apperr.Forbidden("admin is not linked to any store")
	}
	carts, err := s.repos.Carts.ListPaidByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("carts: paid for store: %w", err)
	}
	return carts, nil
}

// Products resolves the products referenced by carts, keyed by ID.
// Products that no longer exist are simply absent.
func (s *CartService) Products(ctx context.Context, carts ...models.Cart) (map[string]models.Product, error) {
	ids := collection.Unique(collection.Flatten(collection.Map(carts, func(c models.Cart) []string {
		return c.ProductIDs()
	})))
	return s.productsByID(ctx, ids)
}

// WhatsAppLink builds the wa.me handoff link carrying the order summary.
func (s *CartService) WhatsAppLink(ctx context.Context, cartID string) (string, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return "", err
	}
	store, err := s.repos.Stores.FindByID(ctx, cart.StoreID)
	if err != nil {
		return "", missing(err, "carts: whatsapp", "store not found")
	}
	number := digits(store.WhatsApp)
	if number == "" {
		return "", errNoWhatsApp
	}
	products, err := s.productsByID(ctx, cart.ProductIDs())
	if err != nil {
		return "", err
	}

	text := url.QueryEscape(OrderSummary(store, cart, products))
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(text, "+", "%20"), nil
}

// OrderSummary renders the plain-text order used by the WhatsApp link and
// the order notifications.
func OrderSummary(store *models.Store, cart *models.Cart, products map[string]models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! I would like to place this order:\n", store.StoreName)
	for _, line := range cart.Items {
		p, ok := products[line.ProductID]
		if !ok {
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		fmt.Fprintf(&b, "- %d x %s (%s): $%s\n", line.Quantity, p.Title, p.Code, sub.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: $%s\n", cart.Total(products).StringFixed(2))
	fmt.Fprintf(&b, "Order: %s", cart.ID)
	return b.String()
}

// PurgeAbandoned deletes empty open carts older than olderThan.
func (s *CartService) PurgeAbandoned(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.repos.Carts.DeleteAbandoned(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("carts: purge abandoned: %w", err)
	}
	if n > 0 {
		logger.WithCtx(ctx).Info("abandoned carts purged", "count", n)
	}
	return n, nil
}

func (s *CartService) openCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cart, err := s.repos.Carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, missing(err, "carts", errCartNotFound.Message)
	}
	if !cart.InProgress() {
		return nil, errCartLocked
	}
	return cart, nil
}

func (s *CartService) cartAndProduct(ctx context.Context, cartID, productID string, notFound error) (*models.Cart, *models.Product, error) {
	cart, err := s.repos.Carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, nil, missing(err, "carts", errCartNotFound.Message)
	}
	product, err := s.repos.Products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, notFound
		}
		return nil, nil, fmt.Errorf("carts: %w", err)
	}
	return cart, product, nil
}

func (s *CartService) saveItems(ctx context.Context, cart *models.Cart) error {
	if err := s.repos.Carts.SaveItems(ctx, cart); err != nil {
		return s.cartWriteErr(err, "carts: save items")
	}
	return nil
}

func (s *CartService) cartWriteErr(err error, scope string) error {
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return errCartLocked
	case errors.Is(err, repositories.ErrNotFound):
		return errCartNotFound
	}
	return fmt.Errorf("%s: %w", scope, err)
}

func (s *CartService) productsByID(ctx context.Context, ids []string) (map[string]models.Product, error) {
	if len(ids) == 0 {
		return map[string]models.Product{}, nil
	}
	list, err := s.repos.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("carts: load products: %w", err)
	}
	return collection.KeyBy(list, func(p models.Product) string { return p.ID }), nil
}

// sellable is the stock a cart may claim; inactive products have none.
func sellable(p *models.Product) int {
	if !p.Status {
		return 0
	}
	return p.Stock
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errCartPaid):
		return "already_paid"
	case errors.Is(err, errCartEmpty):
		return "empty"
	case errors.Is(err, errCartNotFound):
		return "not_found"
	case apperr.StatusOf(err) == 400 || errors.Is(err, errInsufficient):
		return "stock"
	}
	return "error"
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
