package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertStatusCode checks the response code and shows the body on mismatch.
func AssertStatusCode(t *testing.T, st Step, got int, body []byte) bool {
	t.Helper()
	return assert.Equal(t, st.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", st.Name, body)
}

// AssertExpectations checks every dotted path in st.Expect. String
// expectations may reference captured variables. Values are compared after
// a JSON round trip, so 3 and 3.0 are equal.
func AssertExpectations(t *testing.T, st Step, doc any, vars map[string]string) {
	t.Helper()
	for path, want := range st.Expect {
		got, ok := Lookup(doc, path)
		if !assert.True(t, ok, "[%s] path %q not in response", st.Name, path) {
			continue
		}
		if s, isString := want.(string); isString {
			want = expand(s, vars)
		}
		assert.Equal(t, normalize(want), normalize(got), "[%s] %s", st.Name, path)
	}
}

// AssertJSONBody compares two JSON documents ignoring key order and
// whitespace.
func AssertJSONBody(t *testing.T, name string, expected, actual []byte) {
	t.Helper()
	var exp, act any
	if !assert.NoError(t, json.Unmarshal(expected, &exp), "[%s] expected body is not JSON", name) {
		return
	}
	if !assert.NoError(t, json.Unmarshal(actual, &act), "[%s] actual body is not JSON: %s", name, actual) {
		return
	}
	assert.Equal(t, exp, act, "[%s] response body mismatch", name)
}

// Lookup walks a decoded JSON document by dotted path. Numeric segments
// index arrays; "#" yields an array's length.
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	if path == "" || path == "." {
		return cur, true
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if seg == "#" {
				cur = float64(len(node))
				continue
			}
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Sprint(v)
	}
	return out
}
