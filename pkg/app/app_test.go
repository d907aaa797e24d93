package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/shopfront/app/services"
	"github.com/shashiranjanraj/shopfront/config"
	"github.com/shashiranjanraj/shopfront/pkg/app"
)

func boot(t *testing.T) *app.Application {
	t.Helper()
	config.Set("DB_DRIVER", "memory")
	config.Set("QUEUE_DRIVER", "memory")
	config.Set("REDIS_ADDR", "127.0.0.1:1")
	config.Set("STORAGE_DISK", "local")
	config.Set("STORAGE_LOCAL_ROOT", t.TempDir())

	a, err := app.Boot(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestBootMemoryBackend(t *testing.T) {
	a := boot(t)
	assert.Nil(t, a.DB)
	assert.NotNil(t, a.Disk)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouteListing(t *testing.T) {
	a := boot(t)

	var out bytes.Buffer
	app.PrintRoutes(&out, a.Router())
	for _, name := range []string{"auth.login", "products.index", "carts.pay", "stores.register", "graphql"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestSeedAndCreateAdmin(t *testing.T) {
	a := boot(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, a.Seed(ctx, &out))
	require.NoError(t, a.CreateAdmin(ctx, services.RegisterStoreInput{
		StoreName: "Night Market",
		Address:   "9 Lantern Row",
		Email:     "boss@night.test",
		FirstName: "Kim",
		LastName:  "Boss",
		Password:  "secret1",
	}, &out))
	assert.Contains(t, out.String(), `Store "Night Market" created`)

	stores, err := a.Services.Stores.All(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 2)
}

func TestScheduleOnceAndWorkerGuard(t *testing.T) {
	a := boot(t)
	var out bytes.Buffer

	require.NoError(t, a.RunSchedule(context.Background(), true, &out))
	assert.Contains(t, out.String(), app.PurgeAbandonedTask)

	assert.Error(t, a.Work(context.Background(), 1, &out))
}
