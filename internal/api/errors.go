package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// MapErrorToStatusCode translates domain and service errors into HTTP status
// codes. Unrecognized errors map to 500.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Budget exhaustion gets its own status so clients can distinguish
	// "pay up" from "slow down"
	case errors.Is(err, service.ErrBudgetExceeded):
		return http.StatusPaymentRequired

	// Conflicts
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Missing entities
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Validation and bad-input errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTier),
		errors.Is(err, domain.ErrInvalidTierTransition),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for the error. Internal
// details (SQL, file paths, key material) never reach the response body;
// clients get a stable message per error class plus the trace ID for support.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Authentication required"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired, please login again"
	case errors.Is(err, auth.ErrExpiredRefreshToken):
		return "Refresh token has expired, please login again"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidRefreshToken):
		return "Invalid authentication token"
	case errors.Is(err, domain.ErrUnauthorized):
		return "You do not have permission to perform this action"
	case errors.Is(err, service.ErrBudgetExceeded):
		return "Monthly budget exceeded for your subscription tier"
	case errors.Is(err, store.ErrEmailExists):
		return "This email address is already registered"
	case errors.Is(err, store.ErrDuplicate):
		return "The resource already exists"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, store.ErrAuditRecordNotFound):
		return "Audit record not found"
	case errors.Is(err, store.ErrNotFound):
		return "The requested resource was not found"
	case errors.Is(err, domain.ErrInvalidTierTransition):
		return "This tier change is not permitted for your account"
	case errors.Is(err, domain.ErrInvalidTier):
		return "Unknown subscription tier"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "The request contains invalid data"
	default:
		return "An internal error occurred"
	}
}

// HandleServiceError maps a service-layer error to a status code and a safe
// message, then writes the response and logs the underlying error.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, opts ...shared.ResponseOption) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// SanitizeValidationError converts validator errors into a readable,
// field-level message without leaking struct internals.
func SanitizeValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "Invalid request format"
	}

	var parts []string
	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email address")
		case "min":
			parts = append(parts, field+" must be at least "+fieldErr.Param()+" characters")
		case "max":
			parts = append(parts, field+" must be at most "+fieldErr.Param()+" characters")
		case "gte":
			parts = append(parts, field+" must be at least "+fieldErr.Param())
		case "oneof":
			parts = append(parts, field+" must be one of: "+fieldErr.Param())
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	if len(parts) == 0 {
		return "Invalid request format"
	}
	return "Validation failed: " + strings.Join(parts, "; ")
}
