package worker

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"fmt"
	"time"
)

// Service wraps the worker for the HTTP server and the CLI
type Service struct {
	worker *Worker
	logger logger.Logger
}

// NewService creates a new worker service
func NewService(cfg *models.Config, db TableClient, sweeper LockSweeper, log logger.Logger) (*Service, error) {
	worker, err := NewWorker(cfg, db, sweeper, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create infrastructure worker: %w", err)
	}
	return &Service{worker: worker, logger: log}, nil
}

// StartInBackground starts the scheduler; table provisioning runs on its own goroutine
func (s *Service) StartInBackground() error {
	s.logger.Info("Starting infrastructure worker service in background")
	return s.worker.Start()
}

// Stop stops the infrastructure worker service
func (s *Service) Stop() {
	s.logger.Info("Stopping infrastructure worker service")
	s.worker.Stop()
}

// RunSetupOnce provisions the tables synchronously without starting the scheduler
func (s *Service) RunSetupOnce(ctx context.Context) (*models.ExecutionResult, error) {
	err := s.worker.RunSetup(ctx)
	result := s.worker.Status()
	return &result, err
}

// Status returns the current execution result
func (s *Service) Status() models.ExecutionResult {
	return s.worker.Status()
}

// IsRunning reports whether the scheduler is running
func (s *Service) IsRunning() bool {
	return s.worker.IsRunning()
}

// IsSetupCompleted checks if infrastructure setup is completed
func (s *Service) IsSetupCompleted() bool {
	return s.worker.status.IsSetupCompleted()
}

// WaitForCompletion waits for the startup provisioning to finish
func (s *Service) WaitForCompletion(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Infof("Waiting for infrastructure setup completion (timeout: %s)", timeout)
	if err := s.worker.WaitForSetup(ctx); err != nil {
		return fmt.Errorf("timeout waiting for infrastructure setup completion")
	}
	if !s.IsSetupCompleted() {
		return fmt.Errorf("infrastructure setup failed: %s", s.worker.Status().ErrorMessage)
	}
	return nil
}
