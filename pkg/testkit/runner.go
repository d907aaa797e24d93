package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// HandlerFactory builds a fresh handler, so every journey starts from an
// empty backend.
type HandlerFactory func(t *testing.T) http.Handler

// Run executes the journey in path as a subtest.
func Run(t *testing.T, path string, newHandler HandlerFactory) {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	t.Run(s.Name, func(t *testing.T) { RunScenario(t, s, newHandler(t)) })
}

// RunDir runs every journey in dir as its own subtest.
func RunDir(t *testing.T, dir string, newHandler HandlerFactory) {
	t.Helper()
	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Error(err)
	}
	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) { RunScenario(t, s, newHandler(t)) })
	}
}

// RunScenario fires each step in order against handler. A step whose
// status does not match stops the journey, since later steps depend on it.
func RunScenario(t *testing.T, s *Scenario, handler http.Handler) map[string]string {
	t.Helper()

	mt := NewMockTransport(s.Mocks, s.Strict)
	mt.Install(t)

	vars := map[string]string{}
	for _, st := range s.Steps {
		rec := fire(t, handler, st, vars)
		if !AssertStatusCode(t, st, rec.Code, rec.Body.Bytes()) {
			t.FailNow()
		}
		if len(st.Expect) == 0 && len(st.Capture) == 0 {
			continue
		}

		var doc any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc), "[%s] response is not JSON: %s", st.Name, rec.Body.String())
		AssertExpectations(t, st, doc, vars)
		for name, path := range st.Capture {
			v, ok := Lookup(doc, path)
			require.True(t, ok, "[%s] capture %q: path %q not in response", st.Name, name, path)
			vars[name] = fmt.Sprint(v)
		}
	}

	for _, err := range mt.AssertAllCalled() {
		t.Errorf("[%s] %v", s.Name, err)
	}
	return vars
}

func fire(t *testing.T, handler http.Handler, st Step, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if len(st.Body) > 0 {
		body = bytes.NewReader([]byte(expand(string(st.Body), vars)))
	}
	req := httptest.NewRequest(st.Method, expand(st.URL, vars), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if st.As != "" {
		token, ok := vars[st.As]
		require.True(t, ok, "[%s] no captured token %q", st.Name, st.As)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range st.Headers {
		req.Header.Set(k, expand(v, vars))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// expand replaces {{name}} with captured values. Unknown names are kept so
// the failing request shows what was missing.
func expand(s string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[placeholder.FindStringSubmatch(m)[1]]; ok {
			return v
		}
		return m
	})
}
