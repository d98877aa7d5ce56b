package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeUsageRollup aggregates raw usage records into daily summaries.
	TaskTypeUsageRollup = "usage_rollup"

	// TaskTypeAnomalyScan feeds recent request rates into the anomaly
	// detectors and audits anything flagged.
	TaskTypeAnomalyScan = "anomaly_scan"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as a byte slice
	Payload() []byte

	// Status returns the current task status
	Status() TaskStatus

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// StoredTask is the persisted form of a task, as loaded from the store.
// It carries no execution logic; the runner rehydrates it through the
// factory registered for its type.
type StoredTask struct {
	ID        uuid.UUID
	Type      string
	Payload   []byte
	Status    TaskStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Factory builds an executable Task of one type from a stored payload.
type Factory func(payload []byte) (Task, error)

// FactoryRegistry maps task types to their factories. The runner consults
// it when recovering persisted tasks after a restart.
type FactoryRegistry map[string]Factory

// Rehydrate turns a stored task back into an executable one.
// Returns an error if no factory is registered for the task's type.
func (r FactoryRegistry) Rehydrate(st *StoredTask) (Task, error) {
	factory, ok := r[st.Type]
	if !ok {
		return nil, fmt.Errorf("no factory registered for task type %q", st.Type)
	}
	task, err := factory(st.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild %s task: %w", st.Type, err)
	}
	return &recoveredTask{Task: task, id: st.ID}, nil
}

// recoveredTask preserves the persisted task ID across rehydration so the
// store row tracks the same unit of work.
type recoveredTask struct {
	Task
	id uuid.UUID
}

func (t *recoveredTask) ID() uuid.UUID {
	return t.id
}

// TaskStore defines the interface for persisting tasks.
type TaskStore interface {
	// SaveTask persists a task.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task, recording the error
	// message for failed tasks.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status.
	GetPendingTasks(ctx context.Context) ([]*StoredTask, error)

	// GetProcessingTasks retrieves tasks with "processing" status. If
	// olderThan is non-zero, only tasks that have sat in that state longer
	// than the duration are returned.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*StoredTask, error)

	// WithTx returns a TaskStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}

// marshalPayload is a small helper for task constructors.
func marshalPayload(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return data, nil
}
