package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/signing"
	"github.com/lambda-platform/lambda-api/internal/store"
	"github.com/lambda-platform/lambda-api/internal/task"
)

// AuditService maintains the signed, append-only audit log. Every record is
// signed at append time; Verify re-checks a stored record against the
// signing key, detecting any after-the-fact modification.
type AuditService interface {
	// Record signs and appends a new audit entry.
	Record(ctx context.Context, actor, action, detail string) error

	// Verify loads a record and checks its signature.
	// Returns ErrAuditVerificationFailed if the record was tampered with.
	Verify(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)

	// List returns records in [from, to), newest first, capped at limit.
	List(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error)
}

// AuditServiceImpl implements the AuditService interface.
type AuditServiceImpl struct {
	auditStore store.AuditStore
	signer     signing.Signer
	logger     *slog.Logger
}

// Background tasks append anomaly findings through the same service.
var (
	_ AuditService = (*AuditServiceImpl)(nil)
	_ task.Auditor = (*AuditServiceImpl)(nil)
)

// NewAuditService creates a new AuditService.
func NewAuditService(auditStore store.AuditStore, signer signing.Signer, logger *slog.Logger) *AuditServiceImpl {
	return &AuditServiceImpl{
		auditStore: auditStore,
		signer:     signer,
		logger:     logger.With("component", "audit_service"),
	}
}

// Record signs and appends a new audit entry.
func (s *AuditServiceImpl) Record(ctx context.Context, actor, action, detail string) error {
	rec, err := domain.NewAuditRecord(actor, action, detail)
	if err != nil {
		return fmt.Errorf("failed to build audit record: %w", err)
	}

	payload, err := rec.CanonicalPayload()
	if err != nil {
		return fmt.Errorf("failed to serialize audit payload: %w", err)
	}

	rec.Signature, err = s.signer.Sign(payload)
	if err != nil {
		s.logger.Error("failed to sign audit record",
			"error", err,
			"action", action)
		return fmt.Errorf("failed to sign audit record: %w", err)
	}

	if err := s.auditStore.Append(ctx, rec); err != nil {
		s.logger.Error("failed to append audit record",
			"error", err,
			"action", action)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	s.logger.Debug("audit record appended",
		"record_id", rec.ID,
		"actor", actor,
		"action", action)
	return nil
}

// Verify loads a record and re-checks its signature against the stored
// payload fields.
func (s *AuditServiceImpl) Verify(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	rec, err := s.auditStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit record: %w", err)
	}

	payload, err := rec.CanonicalPayload()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize audit payload: %w", err)
	}

	if err := s.signer.Verify(payload, rec.Signature); err != nil {
		s.logger.Warn("audit record failed verification",
			"record_id", id,
			"action", rec.Action)
		return nil, fmt.Errorf("%w: record %s", ErrAuditVerificationFailed, id)
	}

	return rec, nil
}

// List returns records in [from, to), newest first, capped at limit.
func (s *AuditServiceImpl) List(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error) {
	records, err := s.auditStore.List(ctx, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	return records, nil
}
