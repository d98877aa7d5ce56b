// Package scheduler drives the platform's recurring jobs: daily usage
// rollups, periodic anomaly scans, monthly budget resets, and rate limiter
// pruning. Background work is requested through the event emitter; only
// maintenance that touches in-memory state runs inline.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lambda-platform/lambda-api/internal/events"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/task"
)

// Cron expressions for the recurring jobs (standard five-field format).
const (
	// scheduleRollup runs shortly after midnight UTC, aggregating the
	// previous day.
	scheduleRollup = "15 0 * * *"

	// scheduleAnomalyScan samples request rates every five minutes.
	scheduleAnomalyScan = "*/5 * * * *"

	// scheduleBudgetReset runs just after the month turns over.
	scheduleBudgetReset = "5 0 1 * *"

	// schedulePrune drops idle rate limiter entries hourly.
	schedulePrune = "0 * * * *"
)

// Pruner drops stale entries from an in-memory structure.
// Implemented by the rate limiter.
type Pruner interface {
	Prune() int
}

// Scheduler owns the cron runner and the job definitions.
type Scheduler struct {
	cron    *cron.Cron
	emitter events.EventEmitter
	budgets service.BudgetService
	pruner  Pruner
	logger  *slog.Logger

	timeFunc func() time.Time // Injectable for testing
}

// New creates a Scheduler. Jobs are registered by Start.
func New(
	emitter events.EventEmitter,
	budgets service.BudgetService,
	pruner Pruner,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		emitter:  emitter,
		budgets:  budgets,
		pruner:   pruner,
		logger:   logger.With(slog.String("component", "scheduler")),
		timeFunc: time.Now,
	}
}

// Start registers the recurring jobs and launches the cron runner.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"usage_rollup", scheduleRollup, s.runRollup},
		{"anomaly_scan", scheduleAnomalyScan, s.runAnomalyScan},
		{"budget_reset", scheduleBudgetReset, s.runBudgetReset},
		{"limiter_prune", schedulePrune, s.runPrune},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.fn); err != nil {
			return fmt.Errorf("failed to register %s job: %w", job.name, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "job_count", len(jobs))
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// runRollup requests a usage rollup task for the previous UTC day.
func (s *Scheduler) runRollup() {
	day := s.timeFunc().UTC().Truncate(24 * time.Hour).Add(-24 * time.Hour)

	event, err := events.NewTaskRequestEvent(task.TaskTypeUsageRollup, map[string]time.Time{"day": day})
	if err != nil {
		s.logger.Error("failed to build rollup event", "error", err)
		return
	}
	if err := s.emitter.EmitEvent(context.Background(), event); err != nil {
		s.logger.Error("failed to emit rollup event", "error", err, "day", day)
		return
	}
	s.logger.Info("requested usage rollup", "day", day)
}

// runAnomalyScan requests a scan over the last five minutes of request
// rates.
func (s *Scheduler) runAnomalyScan() {
	event, err := events.NewTaskRequestEvent(task.TaskTypeAnomalyScan, map[string]int{"window_minutes": 5})
	if err != nil {
		s.logger.Error("failed to build anomaly scan event", "error", err)
		return
	}
	if err := s.emitter.EmitEvent(context.Background(), event); err != nil {
		s.logger.Error("failed to emit anomaly scan event", "error", err)
	}
}

// runBudgetReset rolls the budget cache into the new month.
func (s *Scheduler) runBudgetReset() {
	if err := s.budgets.ResetExpiredPeriods(context.Background()); err != nil {
		s.logger.Error("budget reset failed", "error", err)
		return
	}
	s.logger.Info("budget periods reset")
}

// runPrune drops idle users from the rate limiter.
func (s *Scheduler) runPrune() {
	if dropped := s.pruner.Prune(); dropped > 0 {
		s.logger.Debug("pruned idle rate limiter entries", "dropped", dropped)
	}
}
