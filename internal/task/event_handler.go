package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lambda-platform/lambda-api/internal/events"
)

// TaskRequestHandler turns TaskRequestEvents into queued tasks. It is
// registered with the event emitter at startup so emitters (the scheduler,
// API handlers) stay decoupled from the runner.
type TaskRequestHandler struct {
	runner    *Runner
	factories FactoryRegistry
	logger    *slog.Logger
}

// Ensure TaskRequestHandler implements events.EventHandler
var _ events.EventHandler = (*TaskRequestHandler)(nil)

// NewTaskRequestHandler creates a handler that builds tasks through the
// factory registry and submits them to the runner.
func NewTaskRequestHandler(runner *Runner, factories FactoryRegistry, logger *slog.Logger) *TaskRequestHandler {
	return &TaskRequestHandler{
		runner:    runner,
		factories: factories,
		logger:    logger.With(slog.String("component", "task_request_handler")),
	}
}

// HandleEvent builds the requested task and submits it.
func (h *TaskRequestHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	factory, ok := h.factories[event.Type]
	if !ok {
		return fmt.Errorf("no factory registered for task type %q", event.Type)
	}

	t, err := factory(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to build %s task: %w", event.Type, err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		return fmt.Errorf("failed to submit %s task: %w", event.Type, err)
	}

	h.logger.Debug("task submitted from event",
		"event_id", event.ID,
		"task_id", t.ID(),
		"task_type", event.Type)
	return nil
}
