package routes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/routes"
	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/pkg/router"
)

type api struct {
	t *testing.T
	h http.Handler
}

func newAPI(t *testing.T, staticDir string) *api {
	t.Helper()
	repos := repositories.NewMemory()
	r := router.New()
	routes.RegisterAPI(r, routes.Deps{
		Services: services.New(repos, nil, nil),
		Repos:    repos,
	})
	routes.RegisterFallback(r, staticDir)
	return &api{t: t, h: r.Handler()}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(a.t, rec)["token"].(string)
}

func TestShopperCheckoutFlow(t *testing.T) {
	a := newAPI(t, "")

	rec := a.do(http.MethodPost, "/api/store/register", "", map[string]string{
		"storeName": "Corner Shop", "address": "1 Main St", "whatsapp": "+5491155550101",
		"email": "owner@corner.test", "firstName": "Ana", "lastName": "Owner", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	storeID := decode(t, rec)["store"].(map[string]any)["id"].(string)
	adminToken := a.login("owner@corner.test", "secret1")

	rec = a.do(http.MethodPost, "/api/products", adminToken, map[string]any{
		"title": "Mug", "description": "Stoneware", "code": "MUG", "price": "2.10",
		"status": true, "stock": 5, "category": "kitchen",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	productID := decode(t, rec)["id"].(string)

	rec = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "sam@mail.test", "password": "secret1", "firstName": "Sam", "lastName": "Shopper",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shopperToken := a.login("sam@mail.test", "secret1")

	rec = a.do(http.MethodPost, "/api/products", shopperToken, map[string]any{"title": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/carts", shopperToken, map[string]string{"storeId": storeID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cartID := decode(t, rec)["id"].(string)

	rec = a.do(http.MethodPost, "/api/carts/"+cartID+"/product/"+productID, shopperToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPut, "/api/carts/"+cartID+"/product/"+productID, shopperToken, map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode(t, rec)
	assert.Equal(t, 6.3, view["total"])
	line := view["products"].([]any)[0].(map[string]any)
	assert.Equal(t, 6.3, line["lineTotal"])
	assert.Equal(t, 2.1, line["product"].(map[string]any)["price"])

	rec = a.do(http.MethodPut, "/api/carts/"+cartID+"/product/"+productID, shopperToken, map[string]int{"quantity": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/carts/"+cartID+"/pay", shopperToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "paid", decode(t, rec)["cart"].(map[string]any)["status"])

	rec = a.do(http.MethodGet, "/api/products/"+productID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["stock"])

	rec = a.do(http.MethodGet, "/api/carts/paid", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	require.Len(t, paid, 1)
	assert.Equal(t, cartID, paid[0]["id"])

	rec = a.do(http.MethodGet, "/api/carts/paid", shopperToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/carts/"+cartID+"/product/"+productID, shopperToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestAuthGuards(t *testing.T) {
	a := newAPI(t, "")

	rec := a.do(http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token not provided", decode(t, rec)["error"])

	rec = a.do(http.MethodGet, "/api/products", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/products/all", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@mail.test", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>shop</html>"), 0o644))
	a := newAPI(t, dir)

	rec := a.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", decode(t, rec)["error"])

	rec = a.do(http.MethodGet, "/stores/abc", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shop")
}
