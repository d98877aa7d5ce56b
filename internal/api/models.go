package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/policy"
)

// RegisterRequest is the payload for user registration. Plan selects the
// initial subscription tier; unknown plans start on the free tier.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
	Plan     string `json:"plan,omitempty" validate:"omitempty,oneof=free standard professional pro enterprise"`
}

// LoginRequest is the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the payload for exchanging a refresh token for a
// new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse carries a freshly issued token pair.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	UserID       uuid.UUID   `json:"user_id"`
	Tier         domain.Tier `json:"tier"`
}

// ProfileResponse describes the authenticated user's account.
type ProfileResponse struct {
	ID        uuid.UUID   `json:"id"`
	Email     string      `json:"email"`
	Tier      domain.Tier `json:"tier"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// TierChangeRequest is the payload for moving a user to a new tier, used by
// both the self-service upgrade endpoint and the admin endpoint.
type TierChangeRequest struct {
	Tier string `json:"tier" validate:"required,oneof=free standard professional enterprise"`
}

// UsageRequest is the payload for recording one billable interaction.
type UsageRequest struct {
	Endpoint  string `json:"endpoint" validate:"required,max=255"`
	Tokens    int64  `json:"tokens" validate:"gte=0"`
	CostCents int64  `json:"cost_cents" validate:"gte=0"`
}

// PolicyCheckRequest is the payload for evaluating text against the content
// policy rules.
type PolicyCheckRequest struct {
	Text string `json:"text" validate:"required,max=65536"`
}

// PolicyCheckResponse reports the policy decision and any matched rules.
type PolicyCheckResponse struct {
	Allowed bool           `json:"allowed"`
	Matches []policy.Match `json:"matches,omitempty"`
}

// AuditListResponse wraps a page of audit records.
type AuditListResponse struct {
	Records []*domain.AuditRecord `json:"records"`
	Count   int                   `json:"count"`
}

// AuditVerifyResponse reports a signature verification result for one
// audit record.
type AuditVerifyResponse struct {
	Record   *domain.AuditRecord `json:"record"`
	Verified bool                `json:"verified"`
}

// AnomalyListResponse wraps the current anomaly detector statistics.
type AnomalyListResponse struct {
	Detectors []anomaly.Stats `json:"detectors"`
	Count     int             `json:"count"`
}
