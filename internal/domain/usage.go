package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Usage-specific validation errors
var (
	ErrEmptyUsageID       = errors.New("usage record ID cannot be empty")
	ErrEmptyUsageUserID   = errors.New("usage record user ID cannot be empty")
	ErrEmptyUsageEndpoint = errors.New("usage record endpoint cannot be empty")
	ErrNegativeUsage      = errors.New("usage amounts cannot be negative")
)

// UsageRecord is a single billable API interaction: the tokens consumed and
// the cost incurred by one request against one endpoint.
type UsageRecord struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	Tokens     int64     `json:"tokens"`
	CostCents  int64     `json:"cost_cents"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewUsageRecord creates a validated UsageRecord stamped with the current
// UTC time.
func NewUsageRecord(userID uuid.UUID, endpoint string, tokens, costCents int64) (*UsageRecord, error) {
	rec := &UsageRecord{
		ID:         uuid.New(),
		UserID:     userID,
		Endpoint:   endpoint,
		Tokens:     tokens,
		CostCents:  costCents,
		RecordedAt: time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the UsageRecord has valid data.
func (r *UsageRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyUsageID
	}
	if r.UserID == uuid.Nil {
		return ErrEmptyUsageUserID
	}
	if r.Endpoint == "" {
		return ErrEmptyUsageEndpoint
	}
	if r.Tokens < 0 || r.CostCents < 0 {
		return ErrNegativeUsage
	}
	return nil
}

// UsageSummary aggregates a user's usage over one accounting period.
// Summaries are produced by the rollup task and by the monthly reset job.
type UsageSummary struct {
	UserID      uuid.UUID `json:"user_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Requests    int64     `json:"requests"`
	Tokens      int64     `json:"tokens"`
	CostCents   int64     `json:"cost_cents"`
}

// PeriodStart returns the start of the UTC calendar month containing t.
// Budgets are accounted against this boundary.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextPeriodStart returns the start of the UTC calendar month after t.
func NextPeriodStart(t time.Time) time.Time {
	return PeriodStart(t).AddDate(0, 1, 0)
}
