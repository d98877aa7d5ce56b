package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/metrics"
	"github.com/lambda-platform/lambda-api/internal/service"
)

// Listing defaults for audit records.
const (
	defaultAuditListLimit = 100
	maxAuditListLimit     = 1000

	// defaultAuditWindow is how far back the audit listing reaches when no
	// "from" is given.
	defaultAuditWindow = 30 * 24 * time.Hour
)

// AdminHandler handles operator-only endpoints: tier management, audit log
// inspection, and the metrics snapshot. The admin middleware guards every
// route before these handlers run.
type AdminHandler struct {
	tierService  service.TierService
	auditService service.AuditService
	collector    *metrics.Collector
	detectors    *anomaly.Registry
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	tierService service.TierService,
	auditService service.AuditService,
	collector *metrics.Collector,
	detectors *anomaly.Registry,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		tierService:  tierService,
		auditService: auditService,
		collector:    collector,
		detectors:    detectors,
		logger:       logger.With(slog.String("component", "admin_handler")),
	}
}

// ChangeTier handles PUT /admin/users/{userID}/tier. Admin actors may move
// any user to any tier, downgrades included.
func (h *AdminHandler) ChangeTier(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	userID, err := getPathUUID(r, "userID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID")
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
		claims.UserID, claims.Role, userID, domain.Tier(req.Tier))
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

// ListAudit handles GET /admin/audit. Optional "from"/"to" RFC 3339 query
// parameters bound the window; "limit" caps the page.
func (h *AdminHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := now.Add(-defaultAuditWindow)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "from must be an RFC 3339 timestamp")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "to must be an RFC 3339 timestamp")
			return
		}
		to = parsed
	}
	if !from.Before(to) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "from must precede to")
		return
	}

	limit := defaultAuditListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxAuditListLimit {
			parsed = maxAuditListLimit
		}
		limit = parsed
	}

	records, err := h.auditService.List(r.Context(), from, to, limit)
	if err != nil {
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuditListResponse{
		Records: records,
		Count:   len(records),
	})
}

// VerifyAudit handles GET /admin/audit/{recordID}/verify, re-checking one
// record's signature. A tampered record yields verified=false with the
// stored record attached, not an error, so operators can inspect it.
func (h *AdminHandler) VerifyAudit(w http.ResponseWriter, r *http.Request) {
	recordID, err := getPathUUID(r, "recordID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid record ID")
		return
	}

	rec, err := h.auditService.Verify(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, service.ErrAuditVerificationFailed) {
			h.logger.Warn("audit record failed verification", "record_id", recordID)
			shared.RespondWithJSON(w, r, http.StatusOK, AuditVerifyResponse{Verified: false})
			return
		}
		HandleServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuditVerifyResponse{
		Record:   rec,
		Verified: true,
	})
}

// Metrics handles GET /admin/metrics, returning the in-process request
// metrics snapshot.
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.collector.Snapshot())
}

// Anomalies handles GET /admin/anomalies, returning per-metric detector
// statistics so operators can see what the scan tasks are scoring against.
func (h *AdminHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	stats := h.detectors.Snapshot()
	shared.RespondWithJSON(w, r, http.StatusOK, AnomalyListResponse{
		Detectors: stats,
		Count:     len(stats),
	})
}
