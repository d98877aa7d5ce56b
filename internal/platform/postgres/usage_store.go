package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/platform/logger"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// UsageStore implements the store.UsageStore interface using a PostgreSQL
// database as the storage backend.
type UsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUsageStore creates a new PostgreSQL implementation of the UsageStore
// interface. If logger is nil, the process default is used.
func NewUsageStore(db store.DBTX, logger *slog.Logger) *UsageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UsageStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_store")),
	}
}

// Ensure UsageStore implements store.UsageStore
var _ store.UsageStore = (*UsageStore)(nil)

// CreateRecord implements store.UsageStore.CreateRecord.
// Returns store.ErrInvalidEntity if the record fails validation or
// references a user that does not exist.
func (s *UsageStore) CreateRecord(ctx context.Context, rec *domain.UsageRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO usage_records (id, user_id, endpoint, tokens, cost_cents, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.UserID,
		rec.Endpoint,
		rec.Tokens,
		rec.CostCents,
		rec.RecordedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %s not found", store.ErrInvalidEntity, rec.UserID)
		}
		log.Error("failed to create usage record",
			slog.String("error", err.Error()),
			slog.String("user_id", rec.UserID.String()))
		return err
	}

	return nil
}

// SumForPeriod implements store.UsageStore.SumForPeriod.
func (s *UsageStore) SumForPeriod(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
) (*domain.UsageSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT COUNT(*), COALESCE(SUM(tokens), 0), COALESCE(SUM(cost_cents), 0)
		FROM usage_records
		WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at < $3
	`

	summary := &domain.UsageSummary{
		UserID:      userID,
		PeriodStart: from,
		PeriodEnd:   to,
	}

	err := s.db.QueryRowContext(ctx, query, userID, from, to).Scan(
		&summary.Requests,
		&summary.Tokens,
		&summary.CostCents,
	)
	if err != nil {
		log.Error("failed to sum usage for period",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	return summary, nil
}

// ListRecords implements store.UsageStore.ListRecords.
func (s *UsageStore) ListRecords(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
	limit int,
) ([]*domain.UsageRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, endpoint, tokens, cost_cents, recorded_at
		FROM usage_records
		WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC
		LIMIT $4
	`

	rows, err := s.db.QueryContext(ctx, query, userID, from, to, limit)
	if err != nil {
		log.Error("failed to list usage records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.UsageRecord
	for rows.Next() {
		var rec domain.UsageRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Endpoint,
			&rec.Tokens,
			&rec.CostCents,
			&rec.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// UpsertSummary implements store.UsageStore.UpsertSummary.
func (s *UsageStore) UpsertSummary(ctx context.Context, summary *domain.UsageSummary) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO usage_summaries (user_id, period_start, period_end, requests, tokens, cost_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, period_start)
		DO UPDATE SET period_end = $3, requests = $4, tokens = $5, cost_cents = $6
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		summary.UserID,
		summary.PeriodStart,
		summary.PeriodEnd,
		summary.Requests,
		summary.Tokens,
		summary.CostCents,
	)
	if err != nil {
		log.Error("failed to upsert usage summary",
			slog.String("error", err.Error()),
			slog.String("user_id", summary.UserID.String()))
		return err
	}

	return nil
}

// RequestCounts implements store.UsageStore.RequestCounts.
func (s *UsageStore) RequestCounts(
	ctx context.Context,
	from, to time.Time,
) (map[uuid.UUID]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT user_id, COUNT(*)
		FROM usage_records
		WHERE recorded_at >= $1 AND recorded_at < $2
		GROUP BY user_id
	`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		log.Error("failed to count requests", slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var userID uuid.UUID
		var count int64
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}

	return counts, rows.Err()
}

// WithTx implements store.UsageStore.WithTx.
func (s *UsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return &UsageStore{db: tx, logger: s.logger}
}
