package testkit_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "github.com/shashiranjanraj/shopfront/pkg/http"
	"github.com/shashiranjanraj/shopfront/pkg/testkit"
)

// notes is a tiny token-guarded API used to exercise the runner.
func notes(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	var saved []string
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "user": map[string]any{"id": 7}})
	})
	mux.HandleFunc("POST /notes", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&in)
		saved = append(saved, in.Text)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"notes": saved})
	})
	return mux
}

func TestRunDir(t *testing.T) {
	testkit.RunDir(t, "testdata", notes)
}

func TestCapturedVariables(t *testing.T) {
	s := &testkit.Scenario{Name: "inline", Steps: []testkit.Step{
		{Method: "POST", URL: "/login", ExpectedCode: 200, Capture: map[string]string{"token": "token", "uid": "user.id"}},
		{Method: "POST", URL: "/notes", As: "token", Body: json.RawMessage(`{"text":"user {{uid}}"}`), ExpectedCode: 201,
			Expect: map[string]any{"notes.0": "user 7", "notes.#": 1}},
	}}
	vars := testkit.RunScenario(t, s, notes(t))
	assert.Equal(t, "7", vars["uid"])
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"cart":{"products":[{"quantity":2}]}}`), &doc))

	v, ok := testkit.Lookup(doc, "cart.products.0.quantity")
	assert.True(t, ok)
	assert.EqualValues(t, 2, v)

	v, ok = testkit.Lookup(doc, "cart.products.#")
	assert.True(t, ok)
	assert.EqualValues(t, 1, v)

	_, ok = testkit.Lookup(doc, "cart.products.3")
	assert.False(t, ok)
}

func TestMockTransport(t *testing.T) {
	mt := testkit.NewMockTransport([]testkit.MockStep{
		{MatchURL: "https://hooks.test/", Method: "POST", StatusCode: 202, Body: `{"ok":true}`},
	}, true)
	mt.Install(t)

	res, err := client.Post("https://hooks.test/orders").Body(map[string]string{"id": "c1"}).Send()
	require.NoError(t, err)
	assert.Equal(t, 202, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, res.Text())

	_, err = client.Get("https://elsewhere.test/").Send()
	assert.Error(t, err)

	calls := mt.Calls()
	require.Len(t, calls, 2)
	assert.JSONEq(t, `{"id":"c1"}`, calls[0].Body)
	assert.Empty(t, mt.AssertAllCalled())
}
