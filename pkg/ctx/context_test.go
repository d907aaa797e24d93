package ctx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	appctx "github.com/shashiranjanraj/shopfront/pkg/ctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOKWritesBodyAsIs(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	appctx.Wrap(func(c *appctx.Context) {
		c.OK(map[string]any{"storeName": "Kiosco"})
	})(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kiosco", decode(t, rec)["storeName"])
}

func TestParamFromChi(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/carts/{cid}", appctx.Wrap(func(c *appctx.Context) {
		c.OK(map[string]string{"cid": c.Param("cid")})
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts/abc", nil))

	assert.Equal(t, "abc", decode(t, rec)["cid"])
}

func TestBindJSONValid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"storeId":"s-1"}`))

	appctx.Wrap(func(c *appctx.Context) {
		var in struct {
			StoreID string `json:"storeId" validate:"required"`
		}
		require.True(t, c.BindJSON(&in))
		assert.Equal(t, "s-1", in.StoreID)
		c.NoContent()
	})(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBindJSONEmptyBodyReportsRequiredFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)

	appctx.Wrap(func(c *appctx.Context) {
		var in struct {
			StoreID string `json:"storeId" validate:"required"`
		}
		assert.False(t, c.BindJSON(&in))
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "The storeId field is required.", body["error"])
	assert.Contains(t, body["fields"], "storeId")
}

func TestBindJSONMalformed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"storeId":`))

	appctx.Wrap(func(c *appctx.Context) {
		var in struct {
			StoreID string `json:"storeId"`
		}
		assert.False(t, c.BindJSON(&in))
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid JSON body", decode(t, rec)["error"])
}

func TestFailRendersAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/", nil)

	var written int
	appctx.Wrap(func(c *appctx.Context) {
		c.Fail(apperr.BadRequest("cart already paid"))
		written = c.WrittenStatus()
	})(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, written)
	assert.Equal(t, map[string]any{"error": "cart already paid"}, decode(t, rec))
}

func TestFailHidesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	appctx.Wrap(func(c *appctx.Context) {
		c.Fail(errors.New("pq: connection reset"))
	})(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec)["error"])
}

func TestClientIP(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")

	appctx.Wrap(func(c *appctx.Context) {
		assert.Equal(t, "1.2.3.4", c.ClientIP())
		assert.Nil(t, c.Claims())
	})(rec, req)
}
