package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/domain"
	"github.com/lambda-platform/lambda-api/internal/store"
)

// Anomaly scan construction errors
var (
	ErrNilDetectors = errors.New("detector registry cannot be nil")
	ErrNilAuditor   = errors.New("auditor cannot be nil")
)

// Auditor appends signed records to the audit log. Implemented by the
// audit service; declared here so tasks do not depend on service wiring.
type Auditor interface {
	Record(ctx context.Context, actor, action, detail string) error
}

// anomalyScanPayload is the serialized data stored with a scan task.
type anomalyScanPayload struct {
	// WindowMinutes is the width of the request-rate window to scan.
	WindowMinutes int `json:"window_minutes"`
}

// AnomalyScanTask feeds per-user request rates from the most recent window
// into the anomaly detector registry and audits every flagged user.
type AnomalyScanTask struct {
	id         uuid.UUID
	window     time.Duration
	payload    []byte
	usageStore store.UsageStore
	detectors  *anomaly.Registry
	auditor    Auditor
	logger     *slog.Logger
}

// NewAnomalyScanTask creates a scan task over the given window width.
func NewAnomalyScanTask(
	windowMinutes int,
	usageStore store.UsageStore,
	detectors *anomaly.Registry,
	auditor Auditor,
	logger *slog.Logger,
) (*AnomalyScanTask, error) {
	if usageStore == nil {
		return nil, ErrNilUsageStore
	}
	if detectors == nil {
		return nil, ErrNilDetectors
	}
	if auditor == nil {
		return nil, ErrNilAuditor
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if windowMinutes <= 0 {
		windowMinutes = 1
	}

	payload, err := marshalPayload(anomalyScanPayload{WindowMinutes: windowMinutes})
	if err != nil {
		return nil, err
	}

	return &AnomalyScanTask{
		id:         uuid.New(),
		window:     time.Duration(windowMinutes) * time.Minute,
		payload:    payload,
		usageStore: usageStore,
		detectors:  detectors,
		auditor:    auditor,
		logger:     logger.With(slog.String("task_type", TaskTypeAnomalyScan)),
	}, nil
}

// NewAnomalyScanFactory returns a Factory that rebuilds scan tasks from
// persisted payloads.
func NewAnomalyScanFactory(
	usageStore store.UsageStore,
	detectors *anomaly.Registry,
	auditor Auditor,
	logger *slog.Logger,
) Factory {
	return func(data []byte) (Task, error) {
		var payload anomalyScanPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("invalid anomaly scan payload: %w", err)
		}
		return NewAnomalyScanTask(payload.WindowMinutes, usageStore, detectors, auditor, logger)
	}
}

// ID implements Task.
func (t *AnomalyScanTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *AnomalyScanTask) Type() string { return TaskTypeAnomalyScan }

// Payload implements Task.
func (t *AnomalyScanTask) Payload() []byte { return t.payload }

// Status implements Task.
func (t *AnomalyScanTask) Status() TaskStatus { return TaskStatusPending }

// Execute scores the latest request-rate observation for every active user.
// Flagged anomalies are appended to the signed audit log; audit failures
// fail the task so the scan is retried.
func (t *AnomalyScanTask) Execute(ctx context.Context) error {
	to := time.Now().UTC().Truncate(time.Minute)
	from := to.Add(-t.window)

	counts, err := t.usageStore.RequestCounts(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to fetch request counts: %w", err)
	}

	var flagged int
	for userID, count := range counts {
		result := t.detectors.Observe("request_rate:"+userID.String(), float64(count))
		if !result.Flagged {
			continue
		}
		flagged++

		detail := fmt.Sprintf("user %s: %d requests in %s (z=%.2f, mean=%.1f)",
			userID, count, t.window, result.ZScore, result.Mean)
		t.logger.Warn("request rate anomaly",
			slog.String("user_id", userID.String()),
			slog.Float64("z_score", result.ZScore),
			slog.Int64("requests", count))

		if err := t.auditor.Record(ctx, "anomaly_scan", domain.AuditActionAnomalyFlagged, detail); err != nil {
			return fmt.Errorf("failed to audit anomaly for user %s: %w", userID, err)
		}
	}

	t.logger.Debug("anomaly scan finished",
		slog.Int("users_scanned", len(counts)),
		slog.Int("flagged", flagged))
	return nil
}
