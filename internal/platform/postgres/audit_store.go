package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/platform/logger"
	"github.com/lambda-platform/lambda-api/internal/signing"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// AuditStore implements the store.AuditStore interface using a PostgreSQL
// database as the storage backend. The audit_records table is append-only;
// this type deliberately has no update or delete methods.
//
// Detail text is sealed with AES-GCM before it reaches the database and
// opened on read, so a database dump does not expose audit details. The
// RSA-PSS signature always covers the plaintext.
type AuditStore struct {
	db       store.DBTX
	envelope *signing.Envelope
	logger   *slog.Logger
}

// NewAuditStore creates a new PostgreSQL implementation of the AuditStore
// interface. If logger is nil, the process default is used.
func NewAuditStore(db store.DBTX, envelope *signing.Envelope, logger *slog.Logger) *AuditStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if envelope == nil {
		panic("envelope cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuditStore{
		db:       db,
		envelope: envelope,
		logger:   logger.With(slog.String("component", "audit_store")),
	}
}

// Ensure AuditStore implements store.AuditStore
var _ store.AuditStore = (*AuditStore)(nil)

// Append implements store.AuditStore.Append.
// Records must arrive signed; an unsigned record is rejected as invalid.
func (s *AuditStore) Append(ctx context.Context, rec *domain.AuditRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	if len(rec.Signature) == 0 {
		return fmt.Errorf("%w: audit record is not signed", store.ErrInvalidEntity)
	}

	sealedDetail, err := s.envelope.Seal([]byte(rec.Detail))
	if err != nil {
		log.Error("failed to seal audit detail",
			slog.String("error", err.Error()),
			slog.String("action", rec.Action))
		return fmt.Errorf("failed to seal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_records (id, actor, action, detail, recorded_at, signature)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.Actor,
		rec.Action,
		sealedDetail,
		rec.RecordedAt,
		rec.Signature,
	)
	if err != nil {
		log.Error("failed to append audit record",
			slog.String("error", err.Error()),
			slog.String("action", rec.Action))
		return err
	}

	log.Debug("audit record appended",
		slog.String("record_id", rec.ID.String()),
		slog.String("action", rec.Action))
	return nil
}

// GetByID implements store.AuditStore.GetByID.
func (s *AuditStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, actor, action, detail, recorded_at, signature
		FROM audit_records
		WHERE id = $1
	`

	var rec domain.AuditRecord
	var sealedDetail []byte
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID,
		&rec.Actor,
		&rec.Action,
		&sealedDetail,
		&rec.RecordedAt,
		&rec.Signature,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAuditRecordNotFound
		}
		log.Error("failed to get audit record",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, err
	}

	detail, err := s.envelope.Open(sealedDetail)
	if err != nil {
		log.Error("failed to open audit detail",
			slog.String("error", err.Error()),
			slog.String("record_id", id.String()))
		return nil, fmt.Errorf("failed to open audit detail: %w", err)
	}
	rec.Detail = string(detail)

	return &rec, nil
}

// List implements store.AuditStore.List.
func (s *AuditStore) List(
	ctx context.Context,
	from, to time.Time,
	limit int,
) ([]*domain.AuditRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, actor, action, detail, recorded_at, signature
		FROM audit_records
		WHERE recorded_at >= $1 AND recorded_at < $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		log.Error("failed to list audit records", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var sealedDetail []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.Actor,
			&rec.Action,
			&sealedDetail,
			&rec.RecordedAt,
			&rec.Signature,
		); err != nil {
			return nil, err
		}
		detail, err := s.envelope.Open(sealedDetail)
		if err != nil {
			log.Error("failed to open audit detail",
				slog.String("error", err.Error()),
				slog.String("record_id", rec.ID.String()))
			return nil, fmt.Errorf("failed to open audit detail: %w", err)
		}
		rec.Detail = string(detail)
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// WithTx implements store.AuditStore.WithTx.
func (s *AuditStore) WithTx(tx *sql.Tx) store.AuditStore {
	return &AuditStore{db: tx, envelope: s.envelope, logger: s.logger}
}
