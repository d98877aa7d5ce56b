package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Audit-specific validation errors
var (
	ErrEmptyAuditID     = errors.New("audit record ID cannot be empty")
	ErrEmptyAuditActor  = errors.New("audit record actor cannot be empty")
	ErrEmptyAuditAction = errors.New("audit record action cannot be empty")
)

// Audit action names recorded by the platform.
const (
	AuditActionUserRegistered = "user.registered"
	AuditActionTierChanged    = "tier.changed"
	AuditActionPolicyBlocked  = "policy.blocked"
	AuditActionAnomalyFlagged = "anomaly.flagged"
	AuditActionBudgetReset    = "budget.reset"
)

// AuditRecord is one append-only entry in the signed audit log. Signature
// holds an RSA-PSS signature over CanonicalPayload, computed at append time
// and re-checked on verification.
type AuditRecord struct {
	ID         uuid.UUID `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
	Signature  []byte    `json:"signature,omitempty"`
}

// NewAuditRecord creates an unsigned AuditRecord stamped with the current
// UTC time, truncated to microseconds to survive a round trip through
// postgres timestamp columns without altering the signed payload.
func NewAuditRecord(actor, action, detail string) (*AuditRecord, error) {
	rec := &AuditRecord{
		ID:         uuid.New(),
		Actor:      actor,
		Action:     action,
		Detail:     detail,
		RecordedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the AuditRecord has valid data.
func (r *AuditRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyAuditID
	}
	if r.Actor == "" {
		return ErrEmptyAuditActor
	}
	if r.Action == "" {
		return ErrEmptyAuditAction
	}
	return nil
}

// CanonicalPayload returns the byte sequence that is signed and verified.
// Go marshals struct fields in declaration order, so the encoding is stable
// as long as the field set does not change. RecordedAt is normalized to UTC
// because time.Time marshals its zone offset: a TIMESTAMPTZ scan hands the
// same instant back in the process's local zone, and the payload must not
// change across that round trip.
func (r *AuditRecord) CanonicalPayload() ([]byte, error) {
	payload := struct {
		ID         uuid.UUID `json:"id"`
		Actor      string    `json:"actor"`
		Action     string    `json:"action"`
		Detail     string    `json:"detail"`
		RecordedAt time.Time `json:"recorded_at"`
	}{
		ID:         r.ID,
		Actor:      r.Actor,
		Action:     r.Action,
		Detail:     r.Detail,
		RecordedAt: r.RecordedAt.UTC(),
	}
	return json.Marshal(payload)
}
