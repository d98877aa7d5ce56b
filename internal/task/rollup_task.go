package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// Common task construction errors
var (
	ErrNilUsageStore = errors.New("usage store cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
)

// usageRollupPayload is the serialized data stored with a rollup task.
type usageRollupPayload struct {
	// Day is the start of the UTC day to aggregate.
	Day time.Time `json:"day"`
}

// UsageRollupTask aggregates one day of raw usage records into per-user
// summaries. It is idempotent: re-running a rollup for the same day simply
// overwrites the previous summary rows.
type UsageRollupTask struct {
	id         uuid.UUID
	day        time.Time
	payload    []byte
	usageStore store.UsageStore
	logger     *slog.Logger
}

// NewUsageRollupTask creates a rollup task for the UTC day containing day.
func NewUsageRollupTask(day time.Time, usageStore store.UsageStore, logger *slog.Logger) (*UsageRollupTask, error) {
	if usageStore == nil {
		return nil, ErrNilUsageStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	day = day.UTC().Truncate(24 * time.Hour)
	payload, err := marshalPayload(usageRollupPayload{Day: day})
	if err != nil {
		return nil, err
	}

	return &UsageRollupTask{
		id:         uuid.New(),
		day:        day,
		payload:    payload,
		usageStore: usageStore,
		logger:     logger.With(slog.String("task_type", TaskTypeUsageRollup)),
	}, nil
}

// NewUsageRollupFactory returns a Factory that rebuilds rollup tasks from
// persisted payloads.
func NewUsageRollupFactory(usageStore store.UsageStore, logger *slog.Logger) Factory {
	return func(data []byte) (Task, error) {
		var payload usageRollupPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("invalid rollup payload: %w", err)
		}
		return NewUsageRollupTask(payload.Day, usageStore, logger)
	}
}

// ID implements Task.
func (t *UsageRollupTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *UsageRollupTask) Type() string { return TaskTypeUsageRollup }

// Payload implements Task.
func (t *UsageRollupTask) Payload() []byte { return t.payload }

// Status implements Task. Rollup tasks carry no in-memory state machine;
// the runner tracks status transitions in the store.
func (t *UsageRollupTask) Status() TaskStatus { return TaskStatusPending }

// Execute aggregates the day's usage for every user with activity.
func (t *UsageRollupTask) Execute(ctx context.Context) error {
	from := t.day
	to := from.Add(24 * time.Hour)

	counts, err := t.usageStore.RequestCounts(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to find users with activity: %w", err)
	}

	t.logger.Info("rolling up usage",
		slog.Time("day", from),
		slog.Int("user_count", len(counts)))

	var failed int
	for userID := range counts {
		summary, err := t.usageStore.SumForPeriod(ctx, userID, from, to)
		if err != nil {
			t.logger.Error("failed to sum usage",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			failed++
			continue
		}

		if err := t.usageStore.UpsertSummary(ctx, summary); err != nil {
			t.logger.Error("failed to store summary",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()))
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("rollup incomplete: %d of %d users failed", failed, len(counts))
	}
	return nil
}
