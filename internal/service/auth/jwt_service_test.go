package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambda-platform/lambda-api/internal/config"
	"github.com/lambda-platform/lambda-api/internal/domain"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-secret-that-is-at-least-32-chars!!",
		TokenLifetimeMinutes:        15,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func testUser(t *testing.T) *domain.User {
	t.Helper()
	user, err := domain.NewUser("claims@example.com", "a-long-enough-password", "professional")
	require.NoError(t, err)
	return user
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"
	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	user := testUser(t)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")), "token must have header.claims.signature form")

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, domain.TierProfessional, claims.Tier)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	ctx := context.Background()

	token, err := svc.GenerateToken(ctx, testUser(t))
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.ValidateToken(ctx, tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(ctx, "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	svcA, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	cfgB := testAuthConfig()
	cfgB.JWTSecret = "a-different-secret-also-32-chars-long!!!"
	svcB, err := NewJWTService(cfgB)
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svcA.GenerateToken(ctx, testUser(t))
	require.NoError(t, err)

	_, err = svcB.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	currentTime := now
	svc, err := NewJWTServiceWithTimeFunc(testAuthConfig(), func() time.Time {
		return currentTime
	})
	require.NoError(t, err)

	ctx := context.Background()
	token, err := svc.GenerateToken(ctx, testUser(t))
	require.NoError(t, err)

	// Inside lifetime: valid.
	currentTime = now.Add(10 * time.Minute)
	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)

	// Just past lifetime but within the 2-minute skew allowance: still valid.
	currentTime = now.Add(16 * time.Minute)
	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)

	// Beyond lifetime plus skew: expired.
	currentTime = now.Add(20 * time.Minute)
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenTypeEnforcement(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)
	ctx := context.Background()
	user := testUser(t)

	access, err := svc.GenerateToken(ctx, user)
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	// A refresh token must not pass as an access token, and vice versa.
	_, err = svc.ValidateToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateRefreshToken(ctx, access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	currentTime := now
	svc, err := NewJWTServiceWithTimeFunc(testAuthConfig(), func() time.Time {
		return currentTime
	})
	require.NoError(t, err)

	ctx := context.Background()
	user := testUser(t)
	refresh, err := svc.GenerateRefreshToken(ctx, user)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.TokenType)
	assert.Equal(t, user.ID, claims.UserID)

	// A week plus skew later the refresh token has expired.
	currentTime = now.Add(7*24*time.Hour + 3*time.Minute)
	_, err = svc.ValidateRefreshToken(ctx, refresh)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)

	_, err = svc.ValidateRefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestBcryptVerifier(t *testing.T) {
	t.Parallel()

	// Hash generated with bcrypt cost 4 for "correct-password".
	// Using a live hash keeps the test honest about format drift.
	hash := hashForTest(t, "correct-password")

	v := NewBcryptVerifier()
	assert.NoError(t, v.Compare(hash, "correct-password"))
	assert.Error(t, v.Compare(hash, "wrong-password"))
}
