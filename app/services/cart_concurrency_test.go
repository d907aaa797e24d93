package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// race runs fn n times at once and tallies the outcomes by status;
// successes count under 0.
func race(n int, fn func(i int) error) map[int]int {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		start = make(chan struct{})
		out   = map[int]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := fn(i)
			status := 0
			if err != nil {
				status = apperr.StatusOf(err)
			}
			mu.Lock()
			out[status]++
			mu.Unlock()
		}(i)
	}
	close(start)
	wg.Wait()
	return out
}

func TestConcurrentCheckoutsDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "LAST", "4.00", 3)

	const shoppers = 8
	carts := make([]string, shoppers)
	for i := range carts {
		u, err := f.svc.Auth.Register(ctx, RegisterInput{
			Email: fmt.Sprintf("buyer%d@mail.test", i), Password: "secret1", FirstName: "B", LastName: "Uyer",
		})
		require.NoError(t, err)
		cart, err := f.svc.Carts.CreateCart(ctx, u.ID, f.store.ID)
		require.NoError(t, err)
		_, err = f.svc.Carts.AddProduct(ctx, cart.ID, p.ID)
		require.NoError(t, err)
		carts[i] = cart.ID
	}

	got := race(shoppers, func(i int) error {
		_, err := f.svc.Carts.PayCart(ctx, carts[i])
		return err
	})

	assert.Equal(t, 3, got[0], "outcomes: %v", got)
	assert.Equal(t, shoppers-3, got[http.StatusBadRequest]+got[http.StatusConflict], "outcomes: %v", got)
	assert.Equal(t, 0, f.stock(t, p.ID))

	paid, err := f.svc.Carts.PaidForStore(ctx, f.store.ID)
	require.NoError(t, err)
	assert.Len(t, paid, 3)
}

func TestConcurrentDoublePay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "MUG", "2.00", 10)

	cart, err := f.svc.Carts.CreateCart(ctx, f.shopper.ID, f.store.ID)
	require.NoError(t, err)
	_, err = f.svc.Carts.AddProduct(ctx, cart.ID, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Carts.UpdateQuantity(ctx, cart.ID, p.ID, 2)
	require.NoError(t, err)

	got := race(6, func(int) error {
		_, err := f.svc.Carts.PayCart(ctx, cart.ID)
		return err
	})

	assert.Equal(t, 1, got[0], "outcomes: %v", got)
	assert.Equal(t, 5, got[http.StatusBadRequest]+got[http.StatusConflict], "outcomes: %v", got)
	assert.Equal(t, 8, f.stock(t, p.ID))
	assert.Equal(t, []string{"cart.paid"}, filterNames(f.eventNames(), "cart.paid"))
}

func TestConcurrentCreateCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got := race(8, func(int) error {
		_, err := f.svc.Carts.CreateCart(ctx, f.shopper.ID, f.store.ID)
		return err
	})

	assert.Equal(t, map[int]int{0: 1, http.StatusConflict: 7}, got)
}

func filterNames(names []string, keep string) []string {
	var out []string
	for _, n := range names {
		if n == keep {
			out = append(out, n)
		}
	}
	return out
}
