package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestGroupsAndNames(t *testing.T) {
	r := router.New()
	api := r.Group("/api")
	carts := api.Group("/carts")
	carts.Post("/{cid}/pay", "carts.pay", ok)
	carts.Delete("/{cid}", "carts.destroy", ok)

	url, err := r.URL("carts.pay", map[string]string{"cid": "c-1"})
	require.NoError(t, err)
	assert.Equal(t, "/api/carts/c-1/pay", url)

	_, err = r.URL("carts.pay", nil)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/carts/c-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGroupMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, tag)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := router.New()
	g := r.Group("/api", mw("group"))
	g.Put("/x", "x", ok, mw("route"))

	r.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/x", nil))
	assert.Equal(t, []string{"group", "route"}, order)
}

func TestRoutesSorted(t *testing.T) {
	r := router.New()
	r.Group("/api/products").Get("/", "products.index", ok)
	r.Group("/api/carts").Post("/", "carts.store", ok)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/carts", routes[0].Path)
	assert.Equal(t, "carts.store", routes[0].Name)
}
