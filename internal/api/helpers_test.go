package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
)

// newJSONRequest builds a request with the given body serialized as JSON.
func newJSONRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withClaims attaches authenticated claims to the request context the way
// the auth middleware does.
func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, claims.UserID)
	ctx = context.WithValue(ctx, shared.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

// withURLParam attaches a chi route parameter to the request context so
// handlers can read it outside a router.
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// userClaims builds access token claims for a regular user.
func userClaims(userID uuid.UUID, tier domain.Tier) *auth.Claims {
	return &auth.Claims{
		UserID:    userID,
		TokenType: "access",
		Tier:      tier,
		Role:      domain.RoleUser,
	}
}

// adminClaims builds access token claims for an admin.
func adminClaims(userID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:    userID,
		TokenType: "access",
		Tier:      domain.TierEnterprise,
		Role:      domain.RoleAdmin,
	}
}

// decodeBody decodes a JSON response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}
