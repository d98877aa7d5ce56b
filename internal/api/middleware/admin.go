package middleware

import (
	"log/slog"
	"net/http"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
)

// RequireAdmin gates a route on the admin role carried in the token claims.
// Must run after AuthMiddleware.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "admin_middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(shared.ClaimsContextKey).(*auth.Claims)
			if !ok || claims == nil {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
				return
			}

			if claims.Role != domain.RoleAdmin {
				log.Warn("non-admin attempted admin endpoint",
					"user_id", claims.UserID,
					"path", r.URL.Path)
				shared.RespondWithError(w, r, http.StatusForbidden,
					"You do not have permission to perform this action")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
