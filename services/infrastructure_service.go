package services

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/infrastructure"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"fmt"
	"time"
)

// WorkerStatusSource exposes the background worker's state; worker.Service implements it
type WorkerStatusSource interface {
	Status() models.ExecutionResult
	IsRunning() bool
}

type InfrastructureService struct {
	worker   WorkerStatusSource
	dbClient dal.DatabaseClientInterface
	logger   logger.Logger
	config   *models.Config
}

// NewInfrastructureService creates the service. worker may be nil when the worker is disabled.
func NewInfrastructureService(worker WorkerStatusSource, dbClient dal.DatabaseClientInterface, logger logger.Logger, config *models.Config) *InfrastructureService {
	return &InfrastructureService{
		worker:   worker,
		dbClient: dbClient,
		logger:   logger,
		config:   config,
	}
}

// GetStatus reports the worker's provisioning and maintenance state
func (s *InfrastructureService) GetStatus(ctx context.Context) (*models.InfrastructureStatus, error) {
	s.logger.Debug("Getting infrastructure status")

	if s.worker == nil {
		return &models.InfrastructureStatus{
			WorkerRunning: false,
			Healthy:       false,
			Message:       "Infrastructure worker is disabled",
		}, nil
	}

	execution := s.worker.Status()
	healthy, message := s.evaluate(execution)
	return &models.InfrastructureStatus{
		WorkerRunning: s.worker.IsRunning(),
		Execution:     &execution,
		Healthy:       healthy,
		Message:       message,
	}, nil
}

// IsWorkerHealthy checks whether provisioning finished and the last health check passed
func (s *InfrastructureService) IsWorkerHealthy() (bool, string) {
	if s.worker == nil {
		return false, "Infrastructure worker is disabled"
	}
	return s.evaluate(s.worker.Status())
}

func (s *InfrastructureService) evaluate(result models.ExecutionResult) (bool, string) {
	switch result.Status {
	case models.StatusCompleted:
		if result.Success {
			return true, "Infrastructure setup completed successfully"
		}
		return false, "Infrastructure setup completed with errors"
	case models.StatusCreatingTables, models.StatusRunning:
		runningTime := time.Since(result.StartTime)
		if !result.StartTime.IsZero() && runningTime > 30*time.Minute {
			return false, fmt.Sprintf("Infrastructure setup running too long: %s", runningTime.Round(time.Second))
		}
		return false, "Infrastructure setup in progress"
	case models.StatusFailed:
		return false, fmt.Sprintf("Worker failed: %s", result.ErrorMessage)
	case models.StatusDegraded:
		return false, fmt.Sprintf("Health check failed: %s", result.ErrorMessage)
	case models.StatusIdle:
		return false, "Infrastructure setup has not run"
	default:
		return false, fmt.Sprintf("Unknown worker status: %s", result.Status)
	}
}

// CheckTables describes every configured table directly, independent of the worker
func (s *InfrastructureService) CheckTables(ctx context.Context) ([]models.TableStatus, error) {
	names := s.config.Tables
	if len(names) == 0 {
		names = infrastructure.BaseTableNames()
	}

	tables := make([]models.TableStatus, 0, len(names))
	for _, base := range names {
		name := s.config.TableName(base)
		status := models.TableStatus{Name: name}

		desc, err := s.dbClient.DescribeTable(ctx, name)
		switch {
		case err != nil && dal.IsTableNotFound(err):
			status.Status = "MISSING"
		case err != nil:
			s.logger.Errorf("Failed to describe table %s: %v", name, err)
			return nil, fmt.Errorf("failed to describe table %s: %w", name, err)
		case desc.Table != nil:
			status.Status = string(desc.Table.TableStatus)
			status.IndexCount = len(desc.Table.GlobalSecondaryIndexes)
			if desc.Table.CreationDateTime != nil {
				status.CreatedAt = *desc.Table.CreationDateTime
			}
		default:
			status.Status = "UNKNOWN"
		}
		tables = append(tables, status)
	}
	return tables, nil
}
