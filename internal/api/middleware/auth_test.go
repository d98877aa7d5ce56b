package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockJWTValidator implements auth.JWTService for middleware tests; only
// ValidateToken is exercised.
type mockJWTValidator struct {
	validateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

var _ auth.JWTService = (*mockJWTValidator)(nil)

func (m *mockJWTValidator) GenerateToken(ctx context.Context, user *domain.User) (string, error) {
	return "", nil
}

func (m *mockJWTValidator) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, tokenString)
	}
	return nil, auth.ErrInvalidToken
}

func (m *mockJWTValidator) GenerateRefreshToken(ctx context.Context, user *domain.User) (string, error) {
	return "", nil
}

func (m *mockJWTValidator) ValidateRefreshToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	return nil, auth.ErrInvalidRefreshToken
}

func TestAuthenticatePlacesClaimsInContext(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	jwt := &mockJWTValidator{
		validateTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			require.Equal(t, "valid-token", tokenString)
			return &auth.Claims{UserID: userID, TokenType: "access", Tier: domain.TierStandard, Role: domain.RoleUser}, nil
		},
	}
	mw := NewAuthMiddleware(jwt, testLogger())

	var gotUserID uuid.UUID
	var gotClaims *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
		gotClaims, _ = r.Context().Value(shared.ClaimsContextKey).(*auth.Claims)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, gotUserID)
	require.NotNil(t, gotClaims)
	assert.Equal(t, domain.TierStandard, gotClaims.Tier)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(&mockJWTValidator{}, testLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"no scheme", "just-a-token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mw := NewAuthMiddleware(&mockJWTValidator{}, testLogger())
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("next handler should not run")
			})

			req := httptest.NewRequest(http.MethodGet, "/usage", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			mw.Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthenticateExpiredTokenMessage(t *testing.T) {
	t.Parallel()

	jwt := &mockJWTValidator{
		validateTokenFn: func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			return nil, auth.ErrExpiredToken
		},
	}
	mw := NewAuthMiddleware(jwt, testLogger())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}
