package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// OnboardingHandler handles account lifecycle endpoints: registration,
// login, token refresh, profile, and self-service tier upgrades.
type OnboardingHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	tierService      service.TierService
	auditService     service.AuditService
	logger           *slog.Logger
}

// NewOnboardingHandler creates a new OnboardingHandler.
func NewOnboardingHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
	tierService service.TierService,
	auditService service.AuditService,
	logger *slog.Logger,
) *OnboardingHandler {
	return &OnboardingHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		tierService:      tierService,
		auditService:     auditService,
		logger:           logger.With(slog.String("component", "onboarding_handler")),
	}
}

// Register handles POST /onboarding/register. It creates the account on the
// tier implied by the plan code and returns a token pair.
func (h *OnboardingHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := domain.NewUser(req.Email, req.Password, req.Plan)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"The request contains invalid data", err)
		return
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			// Elevated so repeated enumeration attempts stand out in logs.
			shared.RespondWithErrorAndLog(w, r, http.StatusConflict,
				GetSafeErrorMessage(err), err, shared.WithElevatedLogLevel())
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	detail := fmt.Sprintf("user %s registered on tier %s", user.ID, user.Tier)
	if err := h.auditService.Record(r.Context(), user.ID.String(), domain.AuditActionUserRegistered, detail); err != nil {
		// Registration committed; the missing audit entry is logged, not
		// surfaced to the client.
		h.logger.Error("failed to audit registration",
			"error", err,
			"user_id", user.ID)
	}

	h.respondWithTokenPair(w, r, user, http.StatusCreated)
}

// Login handles POST /onboarding/login, verifying credentials and issuing a
// fresh token pair.
func (h *OnboardingHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	// A missing user and a wrong password produce the same response so the
	// endpoint cannot be used to probe which emails are registered.
	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized,
				"Invalid email or password", err, shared.WithElevatedLogLevel())
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized,
			"Invalid email or password", err, shared.WithElevatedLogLevel())
		return
	}

	h.respondWithTokenPair(w, r, user, http.StatusOK)
}

// Refresh handles POST /onboarding/refresh, exchanging a valid refresh token
// for a new token pair. The user is reloaded so the new access token carries
// the current tier and role.
func (h *OnboardingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleServiceError(w, r, err, shared.WithElevatedLogLevel())
		return
	}

	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	h.respondWithTokenPair(w, r, user, http.StatusOK)
}

// Profile handles GET /users/me, returning the authenticated user's account.
func (h *OnboardingHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserIDFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	user, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Tier:      user.Tier,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

// UpgradeTier handles PUT /users/me/tier. Regular users may only move up;
// the new tier takes effect on rate limits once the token is refreshed.
func (h *OnboardingHandler) UpgradeTier(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	var req TierChangeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user, err := h.tierService.ChangeTier(r.Context(),
		claims.UserID, claims.Role, claims.UserID, domain.Tier(req.Tier))
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Tier:      user.Tier,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

// respondWithTokenPair issues and writes an access/refresh token pair for
// the user.
func (h *OnboardingHandler) respondWithTokenPair(w http.ResponseWriter, r *http.Request, user *domain.User, status int) {
	accessToken, err := h.jwtService.GenerateToken(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(r.Context(), user)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	shared.RespondWithJSON(w, r, status, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Tier:         user.Tier,
	})
}
