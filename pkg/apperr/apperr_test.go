package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shashiranjanraj/shopfront/pkg/apperr"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad request", apperr.BadRequest("cart is empty"), http.StatusBadRequest},
		{"wrapped conflict", fmt.Errorf("pay: %w", apperr.Conflict("insufficient stock")), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.StatusOf(tc.err))
		})
	}
}

func TestFromHidesInternalCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := apperr.From(cause)

	assert.Equal(t, http.StatusInternalServerError, e.Status)
	assert.Equal(t, "internal server error", e.Message)
	assert.ErrorIs(t, e, cause)
}

func TestIsMatchesSentinel(t *testing.T) {
	errPaid := apperr.BadRequest("cart already paid")
	wrapped := fmt.Errorf("service: %w", apperr.BadRequest("cart already paid"))

	assert.ErrorIs(t, wrapped, errPaid)
	assert.NotErrorIs(t, wrapped, apperr.BadRequest("cart is empty"))
}

func TestValidationUsesFirstFieldMessage(t *testing.T) {
	e := apperr.Validation(map[string]string{
		"password": "The password field must be at least 6 characters.",
		"email":    "The email field must be a valid email address.",
	})

	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "The email field must be a valid email address.", e.Message)
	assert.Len(t, e.Fields, 2)
}
