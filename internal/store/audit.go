package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
)

// AuditStore defines the interface for the append-only audit log.
// Records are never updated or deleted; the signature computed at append
// time must verify against the stored payload forever.
type AuditStore interface {
	// Append stores a signed audit record.
	Append(ctx context.Context, rec *domain.AuditRecord) error

	// GetByID retrieves an audit record by ID.
	// Returns ErrAuditRecordNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)

	// List returns records recorded between from and to in reverse
	// chronological order, capped at limit.
	List(ctx context.Context, from, to time.Time, limit int) ([]*domain.AuditRecord, error)

	// WithTx returns an AuditStore bound to the provided transaction.
	WithTx(tx *sql.Tx) AuditStore
}
