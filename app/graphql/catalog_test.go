package graphql_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgraphql "github.com/shashiranjanraj/shopfront/app/graphql"
	"github.com/shashiranjanraj/shopfront/app/repositories"
	"github.com/shashiranjanraj/shopfront/app/services"
	pkggraphql "github.com/shashiranjanraj/shopfront/pkg/graphql"
)

type result struct {
	Data   map[string]any   `json:"data"`
	Errors []map[string]any `json:"errors"`
}

func setup(t *testing.T) (http.Handler, string) {
	t.Helper()
	ctx := context.Background()
	svc := services.New(repositories.NewMemory(), nil, nil)

	reg, err := svc.Stores.Register(ctx, services.RegisterStoreInput{
		StoreName: "Corner Shop", Address: "1 Main St",
		Email: "owner@corner.test", FirstName: "Ana", LastName: "Owner", Password: "secret1",
	})
	require.NoError(t, err)

	add := func(code, category string, active bool) {
		price, stock := decimal.RequireFromString("2.50"), 3
		_, err := svc.Products.Create(ctx, reg.Store.ID, services.CreateProductInput{
			Title: code, Description: code, Code: code, Price: &price,
			Status: &active, Stock: &stock, Category: category,
		})
		require.NoError(t, err)
	}
	add("MUG", "kitchen", true)
	add("BOWL", "kitchen", true)
	add("OLD", "kitchen", false)

	schema, err := appgraphql.NewCatalog(svc.Products, svc.Stores).Schema()
	require.NoError(t, err)
	return pkggraphql.Handler(schema), reg.Store.ID
}

func post(t *testing.T, h http.Handler, query string, vars map[string]any) result {
	t.Helper()
	body, _ := json.Marshal(pkggraphql.Request{Query: query, Variables: vars})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestProductsHideInactive(t *testing.T) {
	h, storeID := setup(t)

	out := post(t, h, `query($s: String) { products(store: $s, category: "kitchen") { code price } }`,
		map[string]any{"s": storeID})
	require.Empty(t, out.Errors)
	list := out.Data["products"].([]any)
	assert.Len(t, list, 2)
	assert.EqualValues(t, 2.5, list[0].(map[string]any)["price"])
}

func TestStoreWithProductsAndOwner(t *testing.T) {
	h, storeID := setup(t)

	out := post(t, h, `query($id: String!) { store(id: $id) { storeName owner { email } products { code } } }`,
		map[string]any{"id": storeID})
	require.Empty(t, out.Errors)
	store := out.Data["store"].(map[string]any)
	assert.Equal(t, "Corner Shop", store["storeName"])
	assert.Equal(t, "owner@corner.test", store["owner"].(map[string]any)["email"])
	assert.Len(t, store["products"], 2)

	out = post(t, h, `{ store(id: "missing") { id } product(id: "missing") { id } }`, nil)
	require.Empty(t, out.Errors)
	assert.Nil(t, out.Data["store"])
	assert.Nil(t, out.Data["product"])
}

func TestHandlerRequestErrors(t *testing.T) {
	h, _ := setup(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/graphql", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ stores { id } }"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stores"`)
}
