package services

import (
	"dispatch-backend/dal"
	"dispatch-backend/metrics"
	"dispatch-backend/models"
	"dispatch-backend/notify"
	"dispatch-backend/repository"
	"dispatch-backend/utils/logger"
)

// Service implements ServiceContainerInterface
type Service struct {
	dispatchService       DispatchServiceInterface
	planningService       PlanningServiceInterface
	infrastructureService InfrastructureServiceInterface
}

// NewService creates a new service container with all dependencies injected
func NewService(
	repoContainer repository.RepositoryContainerInterface,
	dalContainer dal.DALContainerInterface,
	worker WorkerStatusSource,
	publisher notify.Publisher,
	recorder metrics.Recorder,
	logger logger.Logger,
	config *models.Config,
) ServiceContainerInterface {
	dispatchService := NewDispatchService(repoContainer, publisher, recorder, logger)
	return &Service{
		dispatchService:       dispatchService,
		planningService:       NewPlanningService(repoContainer, dispatchService, publisher, recorder, logger, config),
		infrastructureService: NewInfrastructureService(worker, dalContainer.GetDatabaseClient(), logger, config),
	}
}

// GetDispatchService returns the dispatch service interface
func (s *Service) GetDispatchService() DispatchServiceInterface {
	return s.dispatchService
}

// GetPlanningService returns the planning service interface
func (s *Service) GetPlanningService() PlanningServiceInterface {
	return s.planningService
}

// GetInfrastructureService returns the infrastructure service interface
func (s *Service) GetInfrastructureService() InfrastructureServiceInterface {
	return s.infrastructureService
}
