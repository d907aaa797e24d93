package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopfront/pkg/metrics"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	body := scrape(t)
	assert.Contains(t, body, `route="/items/{id}"`)
	assert.Contains(t, body, `status="418"`)
	assert.NotContains(t, body, `route="/items/a"`)
}

func TestHandlerExposesDomainCounters(t *testing.T) {
	metrics.CartsPaid.Inc()
	metrics.RecordQueueJob("send-order-notification", "processed", time.Now())

	body := scrape(t)
	assert.Contains(t, body, "shopfront_checkout_carts_paid_total")
	assert.Contains(t, body, `job_type="send-order-notification"`)
}
