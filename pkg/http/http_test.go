package http_test

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashiranjanraj/shopfront/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONWithBearer(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	resp, err := http.Post(srv.URL).Bearer("tok").Body(map[string]string{"msg": "hi"}).Send()
	require.NoError(t, err)
	require.NoError(t, resp.Throw())

	var out map[string]string
	require.NoError(t, resp.JSON(&out))
	assert.Equal(t, "hi", out["echo"])
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(gohttp.StatusBadGateway)
			return
		}
		w.WriteHeader(gohttp.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, gohttp.StatusNoContent, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls.Add(1)
		gohttp.Error(w, "nope", gohttp.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := http.Delete(srv.URL).Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.ErrorContains(t, resp.Throw(), "status 401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := http.Get("http://127.0.0.1:1").WithContext(ctx).Send()
	assert.Error(t, err)
}
