package testkit

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	client "github.com/shashiranjanraj/shopfront/pkg/http"
)

// MockStep answers outgoing calls whose URL starts with MatchURL (any URL
// when empty) and, if set, whose method matches.
type MockStep struct {
	MatchURL   string `json:"matchUrl"`
	Method     string `json:"method"`
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Call is one intercepted request.
type Call struct {
	Method string
	URL    string
	Body   string
}

// MockTransport is an http.RoundTripper that serves MockSteps instead of
// touching the network. Unmatched calls get a 404, or a transport error
// when strict.
type MockTransport struct {
	mu     sync.Mutex
	steps  []MockStep
	hits   []int
	calls  []Call
	strict bool
}

func NewMockTransport(steps []MockStep, strict bool) *MockTransport {
	return &MockTransport{steps: steps, hits: make([]int, len(steps)), strict: strict}
}

// Install points the shared pkg/http client at mt until the test ends.
func (mt *MockTransport) Install(t *testing.T) {
	client.DefaultClient.Transport = mt
	t.Cleanup(client.ResetTransport)
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		req.Body.Close()
		body = string(data)
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.calls = append(mt.calls, Call{Method: req.Method, URL: req.URL.String(), Body: body})

	for i, step := range mt.steps {
		if step.Method != "" && !strings.EqualFold(step.Method, req.Method) {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), step.MatchURL) {
			continue
		}
		mt.hits[i]++
		return respond(req, step.StatusCode, step.Body), nil
	}

	if mt.strict {
		return nil, fmt.Errorf("testkit: unexpected outgoing %s %s", req.Method, req.URL)
	}
	return respond(req, http.StatusNotFound, `{"error":"no mock configured"}`), nil
}

// Calls returns every intercepted request in order.
func (mt *MockTransport) Calls() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

// AssertAllCalled reports steps that never matched a request.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for i, step := range mt.steps {
		if mt.hits[i] == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock %s %q was never called", step.Method, step.MatchURL))
		}
	}
	return errs
}

func respond(req *http.Request, code int, body string) *http.Response {
	if code == 0 {
		code = http.StatusOK
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}
