package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
	"github.com/lambda-platform/lambda-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped refresh error", fmt.Errorf("context: %w", auth.ErrInvalidRefreshToken), http.StatusUnauthorized},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"budget exceeded", service.ErrBudgetExceeded, http.StatusPaymentRequired},
		{"email exists", store.ErrEmailExists, http.StatusConflict},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"audit record not found", store.ErrAuditRecordNotFound, http.StatusNotFound},
		{"invalid tier", domain.ErrInvalidTier, http.StatusBadRequest},
		{"invalid transition", domain.ErrInvalidTierTransition, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"unknown error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessageNeverLeaksInternals(t *testing.T) {
	t.Parallel()

	internal := fmt.Errorf("pq: connection refused host=db.internal:5432 user=svc")
	msg := GetSafeErrorMessage(internal)

	assert.Equal(t, "An internal error occurred", msg)
	assert.NotContains(t, msg, "db.internal")
}

func TestGetSafeErrorMessageForKnownErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{auth.ErrExpiredToken, "Token has expired, please login again"},
		{service.ErrBudgetExceeded, "Monthly budget exceeded for your subscription tier"},
		{store.ErrEmailExists, "This email address is already registered"},
		{fmt.Errorf("lookup: %w", store.ErrUserNotFound), "User not found"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, GetSafeErrorMessage(tc.err))
	}
}
