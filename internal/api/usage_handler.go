package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// Listing defaults for raw usage records.
const (
	defaultUsageListLimit = 100
	maxUsageListLimit     = 1000
)

// UsageHandler handles usage recording and budget inspection endpoints.
type UsageHandler struct {
	budgetService service.BudgetService
	usageStore    store.UsageStore
	logger        *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(
	budgetService service.BudgetService,
	usageStore store.UsageStore,
	logger *slog.Logger,
) *UsageHandler {
	return &UsageHandler{
		budgetService: budgetService,
		usageStore:    usageStore,
		logger:        logger.With(slog.String("component", "usage_handler")),
	}
}

// RecordUsage handles POST /usage. The usage is always recorded; a 402
// response means the recorded usage pushed the user over their monthly
// budget.
func (h *UsageHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	var req UsageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	err = h.budgetService.RecordUsage(r.Context(),
		claims.UserID, claims.Tier, req.Endpoint, req.Tokens, req.CostCents)
	if err != nil {
		if errors.Is(err, service.ErrBudgetExceeded) {
			status, statusErr := h.budgetService.Check(r.Context(), claims.UserID, claims.Tier)
			if statusErr != nil {
				HandleServiceError(w, r, err)
				return
			}
			// The over-budget response still carries the standing so the
			// client can show what was exhausted.
			shared.RespondWithJSON(w, r, http.StatusPaymentRequired, status)
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetBudget handles GET /usage/budget, reporting the user's standing against
// their tier's monthly allowances.
func (h *UsageHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	status, err := h.budgetService.Check(r.Context(), claims.UserID, claims.Tier)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// ListUsage handles GET /usage, returning the user's raw usage records for
// the current budget period. Optional "limit" query parameter caps the page.
func (h *UsageHandler) ListUsage(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	limit := defaultUsageListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxUsageListLimit {
			parsed = maxUsageListLimit
		}
		limit = parsed
	}

	now := time.Now().UTC()
	from := domain.PeriodStart(now)
	to := domain.NextPeriodStart(now)

	records, err := h.usageStore.ListRecords(r.Context(), claims.UserID, from, to, limit)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"records":      records,
		"count":        len(records),
		"period_start": from,
		"period_end":   to,
	})
}
