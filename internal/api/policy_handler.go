package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/policy"
	"github.com/lambda-platform/lambda-api/internal/service"
)

// PolicyHandler evaluates request text against the content policy rules.
type PolicyHandler struct {
	engine       *policy.Engine
	auditService service.AuditService
	logger       *slog.Logger
}

// NewPolicyHandler creates a new PolicyHandler.
func NewPolicyHandler(engine *policy.Engine, auditService service.AuditService, logger *slog.Logger) *PolicyHandler {
	return &PolicyHandler{
		engine:       engine,
		auditService: auditService,
		logger:       logger.With(slog.String("component", "policy_handler")),
	}
}

// Check handles POST /policy/check. Blocked evaluations are appended to the
// signed audit log; flagged-only matches are returned but not audited.
func (h *PolicyHandler) Check(w http.ResponseWriter, r *http.Request) {
	claims, err := getClaimsFromContext(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"An internal error occurred", err)
		return
	}

	var req PolicyCheckRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	decision := h.engine.Evaluate(req.Text)

	if !decision.Allowed {
		// Only rule IDs reach the audit log; the blocked text itself is
		// never persisted.
		detail := fmt.Sprintf("blocked by %s", ruleIDs(decision.Matches))
		if err := h.auditService.Record(r.Context(),
			claims.UserID.String(), domain.AuditActionPolicyBlocked, detail); err != nil {
			h.logger.Error("failed to audit policy block",
				"error", err,
				"user_id", claims.UserID)
		}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PolicyCheckResponse{
		Allowed: decision.Allowed,
		Matches: decision.Matches,
	})
}

// ruleIDs formats the matched rule IDs for an audit detail line.
func ruleIDs(matches []policy.Match) string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Severity == policy.SeverityBlock {
			ids = append(ids, m.RuleID)
		}
	}
	return fmt.Sprintf("%v", ids)
}
