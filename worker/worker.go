package worker

import (
	"context"
	"dispatch-backend/infrastructure"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
)

const (
	setupTimeout  = 15 * time.Minute
	jobTimeout    = 30 * time.Second
	defaultHealth = "0 */10 * * * *"
)

// LockSweeper removes technician slot locks whose TTL has passed
type LockSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Worker provisions tables once at startup, then sweeps expired slot locks and checks table health on a schedule
type Worker struct {
	config  *models.WorkerConfig
	setup   *InfrastructureSetup
	sweeper LockSweeper
	status  *StatusManager
	cron    *cron.Cron
	logger  logger.Logger

	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	setupDone chan struct{}
}

// NewWorker builds a worker from the application config
func NewWorker(cfg *models.Config, db TableClient, sweeper LockSweeper, log logger.Logger) (*Worker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	tables := cfg.Tables
	if len(tables) == 0 {
		tables = infrastructure.BaseTableNames()
	}

	sweepSchedule := cfg.WorkerSweepSchedule
	if sweepSchedule == "" {
		sweepSchedule = getSweepScheduleForEnvironment(cfg.AppEnv)
	}

	workerConfig := &models.WorkerConfig{
		SweepSchedule:  sweepSchedule,
		HealthSchedule: defaultHealth,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		Environment:    cfg.AppEnv,
		RequiredTables: tables,
	}
	return NewWorkerWithConfig(cfg, workerConfig, db, sweeper, "", log)
}

// NewWorkerWithConfig builds a worker with an explicit worker configuration. statusPath may be empty.
func NewWorkerWithConfig(cfg *models.Config, workerConfig *models.WorkerConfig, db TableClient, sweeper LockSweeper, statusPath string, log logger.Logger) (*Worker, error) {
	if err := validateWorkerConfig(workerConfig); err != nil {
		return nil, fmt.Errorf("invalid worker configuration: %w", err)
	}
	if db == nil {
		return nil, fmt.Errorf("table client cannot be nil")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("lock sweeper cannot be nil")
	}

	log.Infof("Worker configuration: sweep=%q health=%q tables=%v", workerConfig.SweepSchedule, workerConfig.HealthSchedule, workerConfig.RequiredTables)

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		config:    workerConfig,
		setup:     NewInfrastructureSetup(db, cfg, workerConfig, log),
		sweeper:   sweeper,
		status:    NewStatusManager(statusPath, workerConfig.Environment),
		cron:      cron.New(),
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
		setupDone: make(chan struct{}),
	}, nil
}

// Start schedules the maintenance jobs and kicks off table provisioning in the background
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker is already running")
	}
	select {
	case <-w.ctx.Done():
		return fmt.Errorf("worker context is cancelled, cannot start")
	default:
	}

	if err := w.cron.AddFunc(w.config.SweepSchedule, w.sweepJob); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}
	if err := w.cron.AddFunc(w.config.HealthSchedule, w.healthCheckJob); err != nil {
		return fmt.Errorf("failed to add health check job: %w", err)
	}

	w.logger.Infof("Starting worker: sweep %s, health %s", w.config.SweepSchedule, w.config.HealthSchedule)
	w.cron.Start()
	w.running = true

	if w.config.SkipSetup {
		close(w.setupDone)
		return nil
	}
	go w.runOnceSetup()
	return nil
}

// runOnceSetup provisions tables once, bounded by setupTimeout
func (w *Worker) runOnceSetup() {
	defer close(w.setupDone)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("Infrastructure setup panicked: %v", r)
			w.markFailed(fmt.Sprintf("setup panicked: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(w.ctx, setupTimeout)
	defer cancel()

	if err := w.RunSetup(ctx); err != nil && ctx.Err() == context.DeadlineExceeded {
		w.logger.Error("Infrastructure setup timed out")
	}
}

// RunSetup provisions every required table and validates the result
func (w *Worker) RunSetup(ctx context.Context) error {
	w.logger.Info("Executing infrastructure setup")
	if err := w.status.MarkStarted(models.StatusCreatingTables); err != nil {
		w.logger.Warnf("Failed to save status: %v", err)
	}

	if err := w.setup.Execute(ctx, w.status); err != nil {
		w.markFailed(err.Error())
		return fmt.Errorf("infrastructure setup failed: %w", err)
	}

	if err := w.status.MarkCompleted(); err != nil {
		w.logger.Warnf("Failed to save status: %v", err)
	}
	w.logger.Info("Infrastructure setup completed")
	return nil
}

func (w *Worker) markFailed(message string) {
	if err := w.status.MarkFailed(message); err != nil {
		w.logger.Warnf("Failed to save status: %v", err)
	}
}

// sweepJob removes expired slot locks left behind by crashed assigners
func (w *Worker) sweepJob() {
	ctx, cancel := context.WithTimeout(w.ctx, jobTimeout)
	defer cancel()

	removed, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.logger.Errorf("Expired lock sweep failed: %v", err)
		return
	}
	if removed > 0 {
		w.logger.Infof("Swept %d expired slot locks", removed)
	}
	if err := w.status.RecordSweep(removed, time.Now()); err != nil {
		w.logger.Warnf("Failed to save status: %v", err)
	}
}

// healthCheckJob validates the provisioned tables. Skipped until setup completes.
func (w *Worker) healthCheckJob() {
	current := w.status.Snapshot().Status
	if current != models.StatusCompleted && current != models.StatusDegraded {
		w.logger.Debugf("Skipping health check, worker status is %s", current)
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, jobTimeout)
	defer cancel()

	err := w.setup.Validate(ctx)
	if err != nil {
		w.logger.Errorf("Infrastructure health check failed: %v", err)
	} else {
		w.logger.Debug("Infrastructure health check passed")
	}
	if err := w.status.RecordHealth(err, time.Now()); err != nil {
		w.logger.Warnf("Failed to save status: %v", err)
	}
}

// WaitForSetup blocks until the startup provisioning finishes or ctx ends
func (w *Worker) WaitForSetup(ctx context.Context) error {
	select {
	case <-w.setupDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot of the worker's execution result
func (w *Worker) Status() models.ExecutionResult {
	return w.status.Snapshot()
}

// IsRunning returns whether the worker is currently running
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stop halts the scheduler and cancels in-flight jobs. Safe to call more than once.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		w.cancel()
		return
	}
	w.logger.Info("Stopping worker")
	w.cron.Stop()
	w.cancel()
	w.running = false
}

// validateWorkerConfig validates the worker configuration
func validateWorkerConfig(config *models.WorkerConfig) error {
	if config == nil {
		return fmt.Errorf("worker config cannot be nil")
	}
	if config.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if config.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if config.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}
	if len(config.RequiredTables) == 0 {
		return fmt.Errorf("at least one required table must be specified")
	}

	cronParser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"sweep": config.SweepSchedule, "health": config.HealthSchedule} {
		if spec == "" {
			return fmt.Errorf("%s schedule is required", name)
		}
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s schedule '%s': %w", name, spec, err)
		}
	}
	return nil
}

// getSweepScheduleForEnvironment returns environment-specific sweep schedules
func getSweepScheduleForEnvironment(env string) string {
	switch env {
	case "development":
		return "*/30 * * * * *"
	case "production":
		return "0 */1 * * * *"
	default:
		return "0 */2 * * * *"
	}
}
