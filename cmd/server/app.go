package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lambda-platform/lambda-api/internal/anomaly"
	"github.com/lambda-platform/lambda-api/internal/config"
	"github.com/lambda-platform/lambda-api/internal/dashboard"
	"github.com/lambda-platform/lambda-api/internal/events"
	"github.com/lambda-platform/lambda-api/internal/metrics"
	"github.com/lambda-platform/lambda-api/internal/platform/postgres"
	"github.com/lambda-platform/lambda-api/internal/policy"
	"github.com/lambda-platform/lambda-api/internal/ratelimit"
	"github.com/lambda-platform/lambda-api/internal/scheduler"
	"github.com/lambda-platform/lambda-api/internal/service"
	"github.com/lambda-platform/lambda-api/internal/service/auth"
	"github.com/lambda-platform/lambda-api/internal/signing"
	"github.com/lambda-platform/lambda-api/internal/store"
	"github.com/lambda-platform/lambda-api/internal/task"
)

// application holds the shared application dependencies so wiring and
// shutdown live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore  store.UserStore
	usageStore store.UsageStore
	auditStore store.AuditStore
	taskStore  task.TaskStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	auditService     service.AuditService
	budgetService    service.BudgetService
	tierService      service.TierService

	// Request-path infrastructure
	policyEngine *policy.Engine
	limiter      *ratelimit.Limiter
	collector    *metrics.Collector
	detectors    *anomaly.Registry

	// Dashboard
	hub         *dashboard.Hub
	broadcaster *dashboard.Broadcaster

	// Background work
	eventEmitter events.EventEmitter
	taskRunner   *task.Runner
	scheduler    *scheduler.Scheduler
}

// newApplication builds every dependency and starts the background systems:
// the task runner (with recovery of persisted tasks) and the cron scheduler.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	signer, err := signing.LoadSigner(cfg.Signing.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	envelope, err := signing.NewEnvelopeFromHex(cfg.Signing.AESKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit envelope: %w", err)
	}

	bcryptCost := cfg.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	app.userStore = postgres.NewUserStore(db, bcryptCost, logger)
	app.usageStore = postgres.NewUsageStore(db, logger)
	app.auditStore = postgres.NewAuditStore(db, envelope, logger)
	app.taskStore = postgres.NewTaskStore(db, logger)

	app.auditService = service.NewAuditService(app.auditStore, signer, logger)
	app.budgetService = service.NewBudgetService(app.usageStore, app.auditService, logger)
	app.tierService = service.NewTierService(app.userStore, app.auditService, db, logger)

	app.policyEngine, err = policy.LoadEngine(cfg.Policy.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy rules: %w", err)
	}
	logger.Info("policy engine loaded", "rule_count", app.policyEngine.RuleCount())

	app.limiter = ratelimit.NewLimiter()
	app.collector = metrics.NewCollector()
	app.detectors = anomaly.NewRegistry(anomaly.Config{
		WindowSize: cfg.Anomaly.WindowSize,
		Threshold:  cfg.Anomaly.Threshold,
		MinSamples: cfg.Anomaly.MinSamples,
	})

	app.hub = dashboard.NewHub(logger)
	app.broadcaster = dashboard.NewBroadcaster(
		app.hub,
		app.collector,
		app.detectors,
		app.limiter,
		time.Duration(cfg.Dashboard.BroadcastIntervalSeconds)*time.Second,
		logger,
	)

	if err := app.setupBackgroundWork(); err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// setupBackgroundWork wires the task runner, event emitter, and scheduler.
func (app *application) setupBackgroundWork() error {
	factories := task.FactoryRegistry{
		task.TaskTypeUsageRollup: task.NewUsageRollupFactory(app.usageStore, app.logger),
		task.TaskTypeAnomalyScan: task.NewAnomalyScanFactory(
			app.usageStore, app.detectors, app.auditService, app.logger),
	}

	app.taskRunner = task.NewRunner(app.taskStore, factories, task.RunnerConfig{
		QueueSize:    app.config.Task.QueueSize,
		WorkerCount:  app.config.Task.WorkerCount,
		StuckTaskAge: time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
	}, app.logger)
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(app.logger)
	emitter.RegisterHandler(task.NewTaskRequestHandler(app.taskRunner, factories, app.logger))
	app.eventEmitter = emitter

	app.scheduler = scheduler.New(emitter, app.budgetService, app.limiter, app.logger)
	if err := app.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return nil
}

// Run starts the dashboard broadcaster and the HTTP server, blocking until
// shutdown.
func (app *application) Run(ctx context.Context) error {
	broadcastCtx, stopBroadcast := context.WithCancel(ctx)
	defer stopBroadcast()
	go app.broadcaster.Run(broadcastCtx)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background systems and closes shared resources. Order
// matters: the scheduler stops first so no new tasks are requested while the
// runner drains.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.hub != nil {
		app.hub.Shutdown()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
