// Package testkit drives REST API tests from JSON journey files.
//
// A journey is an ordered list of requests against one handler. Steps can
// capture values from a response ({"capture": {"token": "token"}}) and
// later steps reference them as {{token}} in the URL, headers or body, or
// authenticate with {"as": "token"}.
//
//	testdata/
//	  checkout.json
//
//	func TestJourneys(t *testing.T) {
//	    testkit.RunDir(t, "testdata", func(t *testing.T) http.Handler {
//	        return newHandler(t)
//	    })
//	}
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one journey loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`

	// Mocks intercept outgoing calls made through pkg/http while the
	// journey runs. Strict turns an unmatched call into a transport error.
	Mocks  []MockStep `json:"mocks"`
	Strict bool       `json:"strict"`
}

// Step is a single request and what its response must look like.
type Step struct {
	Name    string            `json:"name"`
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	As      string            `json:"as"` // variable holding a bearer token
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`

	ExpectedCode int `json:"expectedCode"`

	// Expect maps dotted paths ("cart.products.0.quantity") to values the
	// response must hold. Capture maps variable names to dotted paths.
	Expect  map[string]any    `json:"expect"`
	Capture map[string]string `json:"capture"`
}

// LoadScenario reads and validates a journey.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", path, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.URL == "" {
			return fmt.Errorf("steps[%d].url is required", i)
		}
		if st.ExpectedCode == 0 {
			return fmt.Errorf("steps[%d].expectedCode is required", i)
		}
		if st.Method == "" {
			st.Method = "GET"
		}
		st.Method = strings.ToUpper(st.Method)
		if st.Name == "" {
			st.Name = fmt.Sprintf("%02d %s %s", i+1, st.Method, st.URL)
		}
	}
	return nil
}

// LoadAllFromDir loads every *.json file in dir. Files that fail to load
// are returned as errors rather than aborting the rest.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(paths) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}

	var (
		scenarios []*Scenario
		errs      []error
	)
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, errs
}
