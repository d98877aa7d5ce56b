package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
)

// UsageStore defines the interface for usage accounting persistence.
type UsageStore interface {
	// CreateRecord appends a raw usage record.
	CreateRecord(ctx context.Context, rec *domain.UsageRecord) error

	// SumForPeriod aggregates a user's raw usage between from (inclusive)
	// and to (exclusive). A user with no usage yields a zero summary, not
	// an error.
	SumForPeriod(ctx context.Context, userID uuid.UUID, from, to time.Time) (*domain.UsageSummary, error)

	// ListRecords returns a user's raw records between from and to in
	// chronological order, capped at limit.
	ListRecords(ctx context.Context, userID uuid.UUID, from, to time.Time, limit int) ([]*domain.UsageRecord, error)

	// UpsertSummary stores an aggregated summary for a user and period,
	// replacing any previous rollup for the same (user, period_start).
	UpsertSummary(ctx context.Context, summary *domain.UsageSummary) error

	// RequestCounts returns, for each user with activity between from and
	// to, the number of requests made. Used by the anomaly scan.
	RequestCounts(ctx context.Context, from, to time.Time) (map[uuid.UUID]int64, error)

	// WithTx returns a UsageStore bound to the provided transaction.
	WithTx(tx *sql.Tx) UsageStore
}
