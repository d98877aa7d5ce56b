package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/platform/logger"
	"github.com/lambda-platform/lambda-api/internal/store"
	"github.com/lambda-platform/lambda-api/internal/task"
)

// TaskStore implements the task.TaskStore interface using a PostgreSQL
// database as the storage backend.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskStore creates a new PostgreSQL implementation of the TaskStore
// interface. If logger is nil, the process default is used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure TaskStore implements task.TaskStore
var _ task.TaskStore = (*TaskStore)(nil)

// SaveTask implements task.TaskStore.SaveTask.
func (s *TaskStore) SaveTask(ctx context.Context, t task.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := s.db.ExecContext(ctx, query, t.ID(), t.Type(), t.Payload(), t.Status())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: task %s already exists", store.ErrDuplicate, t.ID())
		}
		log.Error("failed to save task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()))
		return err
	}

	log.Debug("task saved",
		slog.String("task_id", t.ID().String()),
		slog.String("task_type", t.Type()))
	return nil
}

// UpdateTaskStatus implements task.TaskStore.UpdateTaskStatus.
// Updating a task that no longer exists is a no-op; the runner tolerates
// rows pruned out from under it.
func (s *TaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, taskID, status, errorMsg)
	if err != nil {
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		log.Warn("task status update matched no rows",
			slog.String("task_id", taskID.String()),
			slog.String("status", string(status)))
	}

	return nil
}

// GetPendingTasks implements task.TaskStore.GetPendingTasks.
func (s *TaskStore) GetPendingTasks(ctx context.Context) ([]*task.StoredTask, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks implements task.TaskStore.GetProcessingTasks.
func (s *TaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]*task.StoredTask, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

// getTasksByStatus loads stored tasks in one status, oldest first. A
// non-zero olderThan restricts the result to tasks whose last update is
// older than that duration.
func (s *TaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]*task.StoredTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, type, payload, status, error_message, created_at, updated_at
		FROM tasks
		WHERE status = $1
	`
	args := []any{status}

	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", err.Error()),
			slog.String("status", string(status)))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []*task.StoredTask
	for rows.Next() {
		var st task.StoredTask
		var errorMsg sql.NullString
		if err := rows.Scan(
			&st.ID,
			&st.Type,
			&st.Payload,
			&st.Status,
			&errorMsg,
			&st.CreatedAt,
			&st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		st.Error = errorMsg.String
		tasks = append(tasks, &st)
	}

	return tasks, rows.Err()
}

// WithTx implements task.TaskStore.WithTx.
func (s *TaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &TaskStore{db: tx, logger: s.logger}
}
