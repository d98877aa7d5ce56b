package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/ratelimit"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
)

// RateLimitMiddleware enforces the per-tier sliding-window request ceiling.
// It must run after AuthMiddleware: the tier is read from the token claims
// so no database round trip happens on the hot path.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware.
func NewRateLimitMiddleware(limiter *ratelimit.Limiter, logger *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger.With(slog.String("component", "ratelimit_middleware")),
	}
}

// Limit applies the rate limit check and annotates every response with
// X-RateLimit headers. Denied requests get 429 with Retry-After.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(shared.ClaimsContextKey).(*auth.Claims)
		if !ok || claims == nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		decision := m.limiter.Allow(claims.UserID, claims.Tier)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			m.logger.Warn("rate limit exceeded",
				"user_id", claims.UserID,
				"tier", claims.Tier,
				"limit", decision.Limit,
				"retry_after_seconds", retryAfter)
			shared.RespondWithError(w, r, http.StatusTooManyRequests,
				"Rate limit exceeded for your subscription tier")
			return
		}

		next.ServeHTTP(w, r)
	})
}
