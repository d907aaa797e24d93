// Package repotest holds the behaviour every repositories backend must
// share. Backend test files call Run with a constructor for a clean set.
package repotest

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository set.
type Factory func(t *testing.T) *repositories.Repositories

// Run executes the shared contract against the backend built by newRepos.
// Cases named in skip are skipped, e.g. "rollback" for a backend running
// without transactions.
func Run(t *testing.T, newRepos Factory, skip ...string) {
	cases := []struct {
		name string
		fn   func(*testing.T, *repositories.Repositories)
	}{
		{"users", testUsers},
		{"stores", testStores},
		{"products", testProducts},
		{"stock", testDecrementStock},
		{"carts", testCarts},
		{"cart guards", testCartGuards},
		{"abandoned", testDeleteAbandoned},
		{"rollback", testRollback},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if slices.Contains(skip, tc.name) {
				t.Skipf("%s not supported by this backend", tc.name)
			}
			tc.fn(t, newRepos(t))
		})
	}
}

// NewUser builds a shopper with a fresh ID.
func NewUser(email string) *models.User {
	return &models.User{ID: uuid.NewString(), Email: email, Password: "hash", FirstName: "Ada", LastName: "Lovelace", Role: models.RoleUser}
}

// NewProduct builds an active product with a fresh ID.
func NewProduct(storeID, code string, price string, stock int) *models.Product {
	return &models.Product{
		ID:          uuid.NewString(),
		Title:       "Item " + code,
		Description: "desc",
		Code:        code,
		Category:    "general",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Thumbnails:  []string{},
		Status:      true,
		StoreID:     storeID,
	}
}

func testUsers(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()

	u := NewUser("ada@example.com")
	require.NoError(t, repos.Users.Create(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	dup := NewUser("ada@example.com")
	assert.ErrorIs(t, repos.Users.Create(ctx, dup), repositories.ErrDuplicate)

	got, err := repos.Users.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repos.Users.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	other := NewUser("grace@example.com")
	require.NoError(t, repos.Users.Create(ctx, other))

	got.FirstName = "Augusta"
	require.NoError(t, repos.Users.Update(ctx, got))
	again, err := repos.Users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", again.FirstName)

	again.Email = "grace@example.com"
	assert.ErrorIs(t, repos.Users.Update(ctx, again), repositories.ErrDuplicate)

	list, err := repos.Users.FindByIDs(ctx, []string{u.ID, other.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := repos.Users.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testStores(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()

	s := &models.Store{ID: uuid.NewString(), StoreName: "Corner", Address: "1 Main St"}
	require.NoError(t, repos.Stores.Create(ctx, s))

	s.WhatsApp = "+15550001111"
	s.OwnerID = uuid.NewString()
	require.NoError(t, repos.Stores.Update(ctx, s))

	got, err := repos.Stores.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", got.WhatsApp)
	assert.Equal(t, s.OwnerID, got.OwnerID)

	missing := &models.Store{ID: uuid.NewString(), StoreName: "x", Address: "y"}
	assert.ErrorIs(t, repos.Stores.Update(ctx, missing), repositories.ErrNotFound)

	all, err := repos.Stores.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testProducts(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	storeA, storeB := uuid.NewString(), uuid.NewString()

	mug := NewProduct(storeA, "MUG-1", "9.50", 4)
	mug.Thumbnails = []string{"https://cdn.example.com/mug.png"}
	require.NoError(t, repos.Products.Create(ctx, mug))
	time.Sleep(5 * time.Millisecond)
	tea := NewProduct(storeB, "TEA-1", "3.25", 10)
	tea.Category = "drinks"
	require.NoError(t, repos.Products.Create(ctx, tea))

	assert.ErrorIs(t, repos.Products.Create(ctx, NewProduct(storeA, "MUG-1", "1", 1)), repositories.ErrDuplicate)

	got, err := repos.Products.FindByID(ctx, mug.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.5")))
	assert.Equal(t, []string{"https://cdn.example.com/mug.png"}, got.Thumbnails)

	all, err := repos.Products.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, tea.ID, all[0].ID, "newest first")

	byStore, err := repos.Products.List(ctx, repositories.ProductFilter{StoreID: storeA})
	require.NoError(t, err)
	require.Len(t, byStore, 1)
	assert.Equal(t, mug.ID, byStore[0].ID)

	byCategory, err := repos.Products.List(ctx, repositories.ProductFilter{Category: "drinks"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	bySearch, err := repos.Products.List(ctx, repositories.ProductFilter{Search: "mug"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 1)

	got.Status = false
	got.Stock = 0
	require.NoError(t, repos.Products.Update(ctx, got))
	active, err := repos.Products.List(ctx, repositories.ProductFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, tea.ID, active[0].ID)

	some, err := repos.Products.FindByIDs(ctx, []string{mug.ID, tea.ID})
	require.NoError(t, err)
	assert.Len(t, some, 2)
}

func testDecrementStock(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	p := NewProduct(uuid.NewString(), "PEN-1", "1.00", 3)
	require.NoError(t, repos.Products.Create(ctx, p))

	require.NoError(t, repos.Products.DecrementStock(ctx, p.ID, 2))
	assert.ErrorIs(t, repos.Products.DecrementStock(ctx, p.ID, 2), repositories.ErrConflict)

	got, err := repos.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func testCarts(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	userID, storeID := uuid.NewString(), uuid.NewString()

	c := &models.Cart{ID: uuid.NewString(), UserID: userID, StoreID: storeID, Status: models.CartInProgress}
	require.NoError(t, repos.Carts.Create(ctx, c))

	second := &models.Cart{ID: uuid.NewString(), UserID: userID, StoreID: storeID, Status: models.CartInProgress}
	err := repos.Carts.Create(ctx, second)
	if err != nil {
		assert.ErrorIs(t, err, repositories.ErrDuplicate)
	}

	open, err := repos.Carts.FindOpen(ctx, userID, storeID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, open.ID)
	assert.Empty(t, open.Items)

	p1, p2 := uuid.NewString(), uuid.NewString()
	open.Items = []models.CartItem{{ProductID: p2, Quantity: 2}, {ProductID: p1, Quantity: 1}}
	require.NoError(t, repos.Carts.SaveItems(ctx, open))

	got, err := repos.Carts.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, p2, got.Items[0].ProductID, "line order kept")
	assert.Equal(t, 2, got.Items[0].Quantity)

	paidAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repos.Carts.MarkPaid(ctx, c.ID, paidAt))

	paid, err := repos.Carts.ListPaidByStore(ctx, storeID)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, models.CartPaid, paid[0].Status)
	require.NotNil(t, paid[0].PaidAt)
	assert.WithinDuration(t, paidAt, *paid[0].PaidAt, time.Second)

	_, err = repos.Carts.FindOpen(ctx, userID, storeID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	third := &models.Cart{ID: uuid.NewString(), UserID: userID, StoreID: storeID, Status: models.CartInProgress}
	require.NoError(t, repos.Carts.Create(ctx, third), "a new cart may open once the old one is paid")

	history, err := repos.Carts.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(history), 2)
}

func testCartGuards(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	c := &models.Cart{ID: uuid.NewString(), UserID: uuid.NewString(), StoreID: uuid.NewString(), Status: models.CartInProgress}
	require.NoError(t, repos.Carts.Create(ctx, c))

	require.NoError(t, repos.Carts.MarkPaid(ctx, c.ID, time.Now().UTC()))
	assert.ErrorIs(t, repos.Carts.MarkPaid(ctx, c.ID, time.Now().UTC()), repositories.ErrConflict)

	c.Items = []models.CartItem{{ProductID: uuid.NewString(), Quantity: 1}}
	assert.ErrorIs(t, repos.Carts.SaveItems(ctx, c), repositories.ErrConflict)
	assert.ErrorIs(t, repos.Carts.Delete(ctx, c.ID), repositories.ErrConflict)

	missing := uuid.NewString()
	assert.ErrorIs(t, repos.Carts.Delete(ctx, missing), repositories.ErrNotFound)
	assert.ErrorIs(t, repos.Carts.MarkPaid(ctx, missing, time.Now()), repositories.ErrNotFound)

	open := &models.Cart{ID: uuid.NewString(), UserID: uuid.NewString(), StoreID: uuid.NewString(), Status: models.CartInProgress}
	require.NoError(t, repos.Carts.Create(ctx, open))
	require.NoError(t, repos.Carts.Delete(ctx, open.ID))
	_, err := repos.Carts.FindByID(ctx, open.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testDeleteAbandoned(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	old := time.Now().UTC().Add(-100 * time.Hour)

	empty := &models.Cart{ID: uuid.NewString(), UserID: uuid.NewString(), StoreID: uuid.NewString(), Status: models.CartInProgress, CreatedAt: old}
	filled := &models.Cart{ID: uuid.NewString(), UserID: uuid.NewString(), StoreID: uuid.NewString(), Status: models.CartInProgress, CreatedAt: old}
	fresh := &models.Cart{ID: uuid.NewString(), UserID: uuid.NewString(), StoreID: uuid.NewString(), Status: models.CartInProgress}
	for _, c := range []*models.Cart{empty, filled, fresh} {
		require.NoError(t, repos.Carts.Create(ctx, c))
	}
	filled.Items = []models.CartItem{{ProductID: uuid.NewString(), Quantity: 1}}
	require.NoError(t, repos.Carts.SaveItems(ctx, filled))

	n, err := repos.Carts.DeleteAbandoned(ctx, time.Now().UTC().Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repos.Carts.FindByID(ctx, empty.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.Carts.FindByID(ctx, filled.ID)
	assert.NoError(t, err)
	_, err = repos.Carts.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func testRollback(t *testing.T, repos *repositories.Repositories) {
	ctx := context.Background()
	p := NewProduct(uuid.NewString(), "ROLL-1", "2.00", 5)
	require.NoError(t, repos.Products.Create(ctx, p))

	boom := errors.New("boom")
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repos.Products.DecrementStock(ctx, p.ID, 3); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repos.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
}
