package routes_test

import (
	"net/http"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/testkit"
)

func TestJourneys(t *testing.T) {
	testkit.RunDir(t, "testdata", func(t *testing.T) http.Handler {
		return newAPI(t, "").h
	})
}
