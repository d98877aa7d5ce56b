package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Runner errors
var (
	ErrQueueFull    = errors.New("task queue is full")
	ErrRunnerClosed = errors.New("task runner is stopped")
)

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can sit in processing state
	// before it is considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks.
	// If zero, defaults to 5 minutes.
	StuckTaskCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background task processing: a buffered channel of tasks,
// a pool of workers, recovery of persisted tasks on startup, and a stuck
// task monitor.
type Runner struct {
	store      TaskStore
	factories  FactoryRegistry
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a new Runner. The factory registry is used to turn
// persisted tasks back into executable ones during recovery.
func NewRunner(store TaskStore, factories FactoryRegistry, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		factories:  factories,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "task_runner")),
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit persists a new task and adds it to the in-memory queue.
// Returns ErrRunnerClosed after Stop, and ErrQueueFull if the queue has no
// capacity; in the latter case the task remains persisted as pending and
// will be picked up on the next recovery.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerClosed
	}

	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	select {
	case r.taskChan <- task:
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(r.taskChan))
	}
}

// Start recovers unfinished tasks and launches the worker pool and the
// stuck-task monitor.
func (r *Runner) Start() error {
	if err := r.recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop gracefully shuts down the runner, waiting for in-flight tasks.
// Subsequent Submit calls return ErrRunnerClosed.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancelFunc()
	r.wg.Wait()
	close(r.taskChan)
	r.logger.Info("task runner stopped")
}

// recover requeues persisted tasks left over from a previous run: pending
// tasks directly, processing tasks after resetting them to pending.
func (r *Runner) recover() error {
	ctx := context.Background()

	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	if len(pending)+len(processing) > 0 {
		r.logger.Info("recovering unfinished tasks",
			"pending_count", len(pending),
			"processing_count", len(processing))
	}

	for _, st := range processing {
		if err := r.store.UpdateTaskStatus(ctx, st.ID, TaskStatusPending, "reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing task",
				"task_id", st.ID,
				"task_type", st.Type,
				"error", err)
			continue
		}
	}

	for _, st := range append(pending, processing...) {
		task, err := r.factories.Rehydrate(st)
		if err != nil {
			// A task type we no longer know how to run; mark failed so it
			// is not retried forever.
			r.logger.Error("failed to rehydrate task",
				"task_id", st.ID,
				"task_type", st.Type,
				"error", err)
			if updErr := r.store.UpdateTaskStatus(ctx, st.ID, TaskStatusFailed, err.Error()); updErr != nil {
				r.logger.Error("failed to mark unrecoverable task as failed",
					"task_id", st.ID,
					"error", updErr)
			}
			continue
		}

		select {
		case r.taskChan <- task:
		default:
			r.logger.Error("failed to requeue recovered task, queue is full",
				"task_id", st.ID,
				"task_type", st.Type)
		}
	}

	return nil
}

// worker drains the task channel until shutdown.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		case task, ok := <-r.taskChan:
			if !ok {
				return
			}
			r.processTask(task, id)
		}
	}
}

// processTask handles execution of a single task, tracking its status
// transitions in the store.
func (r *Runner) processTask(task Task, workerID int) {
	ctx := context.Background()
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", err)
		return
	}

	log.Info("processing task")

	if err := task.Execute(ctx); err != nil {
		log.Error("task execution failed", "error", err)
		if updErr := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusFailed, err.Error()); updErr != nil {
			log.Error("failed to update task status to failed", "error", updErr)
		}
		r.errHandler(task, err)
		return
	}

	log.Info("task completed")
	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusCompleted, ""); err != nil {
		log.Error("failed to update task status to completed", "error", err)
	}
}

// stuckTaskMonitor periodically resets tasks that have been in processing
// state longer than the configured age and requeues them.
func (r *Runner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			ctx := context.Background()

			stuck, err := r.store.GetProcessingTasks(ctx, r.config.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuck))

			for _, st := range stuck {
				if err := r.store.UpdateTaskStatus(ctx, st.ID, TaskStatusPending,
					"reset after being stuck in processing state"); err != nil {
					r.logger.Error("failed to reset stuck task",
						"task_id", st.ID,
						"error", err)
					continue
				}

				task, err := r.factories.Rehydrate(st)
				if err != nil {
					r.logger.Error("failed to rehydrate stuck task",
						"task_id", st.ID,
						"task_type", st.Type,
						"error", err)
					continue
				}

				select {
				case r.taskChan <- task:
					r.logger.Info("requeued stuck task",
						"task_id", st.ID,
						"task_type", st.Type)
				default:
					r.logger.Error("failed to requeue stuck task, queue is full",
						"task_id", st.ID,
						"task_type", st.Type)
				}
			}
		}
	}
}
