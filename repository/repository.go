package repository

import (
	"dispatch-backend/dal"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
)

// RepositoryContainer holds every repository built on one database client
type RepositoryContainer struct {
	dispatchRepo     DispatchRepositoryInterface
	dispatchItemRepo DispatchItemRepositoryInterface
	jobRepo          JobRepositoryInterface
	technicianRepo   TechnicianRepositoryInterface
	lockRepo         LockRepositoryInterface
}

func NewRepositoryContainer(dalContainer dal.DALContainerInterface, cfg *models.Config, log logger.Logger) *RepositoryContainer {
	db := dalContainer.GetDatabaseClient()
	return &RepositoryContainer{
		dispatchRepo:     NewDispatchRepository(db, cfg, log),
		dispatchItemRepo: NewDispatchItemRepository(db, cfg, log),
		jobRepo:          NewJobRepository(db, cfg, log),
		technicianRepo:   NewTechnicianRepository(db, cfg, log),
		lockRepo:         NewLockRepository(db, cfg, log),
	}
}

func (c *RepositoryContainer) GetDispatchRepository() DispatchRepositoryInterface {
	return c.dispatchRepo
}

func (c *RepositoryContainer) GetDispatchItemRepository() DispatchItemRepositoryInterface {
	return c.dispatchItemRepo
}

func (c *RepositoryContainer) GetJobRepository() JobRepositoryInterface {
	return c.jobRepo
}

func (c *RepositoryContainer) GetTechnicianRepository() TechnicianRepositoryInterface {
	return c.technicianRepo
}

func (c *RepositoryContainer) GetLockRepository() LockRepositoryInterface {
	return c.lockRepo
}
