package repository

import (
	"context"
	"dispatch-backend/models"
	"time"
)

// DispatchRepositoryInterface defines the contract for dispatch storage
type DispatchRepositoryInterface interface {
	CreateDispatch(ctx context.Context, dispatch *models.Dispatch) error
	GetDispatch(ctx context.Context, id string) (*models.Dispatch, error)
	GetDispatchTechnicians(ctx context.Context, dispatchID string) ([]models.DispatchTechnician, error)
	SaveDispatch(ctx context.Context, dispatch *models.Dispatch) error
	ReplaceTechnicians(ctx context.Context, dispatch *models.Dispatch, previous []models.DispatchTechnician) error
	ListDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error)
	GetTechnicianAssignments(ctx context.Context, technicianID, from, to string) ([]models.DispatchTechnician, error)
	GetDispatchesForTechnician(ctx context.Context, technicianID, from, to string) ([]*models.Dispatch, error)
}

// DispatchItemRepositoryInterface defines the contract for records attached to a dispatch
type DispatchItemRepositoryInterface interface {
	SaveTimeEntry(ctx context.Context, entry *models.TimeEntry) error
	GetTimeEntry(ctx context.Context, dispatchID, id string) (*models.TimeEntry, error)
	ListTimeEntries(ctx context.Context, dispatchID string) ([]models.TimeEntry, error)
	SaveExpense(ctx context.Context, expense *models.Expense) error
	GetExpense(ctx context.Context, dispatchID, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, dispatchID string) ([]models.Expense, error)
	SaveMaterial(ctx context.Context, material *models.MaterialUsage) error
	GetMaterial(ctx context.Context, dispatchID, id string) (*models.MaterialUsage, error)
	ListMaterials(ctx context.Context, dispatchID string) ([]models.MaterialUsage, error)
	SaveAttachment(ctx context.Context, attachment *models.Attachment) error
	ListAttachments(ctx context.Context, dispatchID string) ([]models.Attachment, error)
	SaveNote(ctx context.Context, note *models.Note) error
	ListNotes(ctx context.Context, dispatchID string) ([]models.Note, error)
}

// JobRepositoryInterface defines the contract for service order job storage
type JobRepositoryInterface interface {
	GetJob(ctx context.Context, id string) (*models.ServiceOrderJob, error)
	SaveJob(ctx context.Context, job *models.ServiceOrderJob) error
	ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]*models.ServiceOrderJob, error)
	ListJobsByServiceOrder(ctx context.Context, serviceOrderID string) ([]*models.ServiceOrderJob, error)
}

// TechnicianRepositoryInterface defines read access to technicians and their calendars
type TechnicianRepositoryInterface interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListTechnicians(ctx context.Context) ([]*models.User, error)
	GetLeaves(ctx context.Context, technicianID string) ([]*models.TechnicianLeave, error)
	GetWorkingHours(ctx context.Context, technicianID string) ([]models.TechnicianWorkingHours, error)
}

// LockRepositoryInterface defines the contract for technician-day slot locks
type LockRepositoryInterface interface {
	Acquire(ctx context.Context, technicianID, date, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, technicianID, date, owner string) error
	SweepExpired(ctx context.Context) (int, error)
}

// RepositoryContainerInterface defines the contract for the repository container
type RepositoryContainerInterface interface {
	GetDispatchRepository() DispatchRepositoryInterface
	GetDispatchItemRepository() DispatchItemRepositoryInterface
	GetJobRepository() JobRepositoryInterface
	GetTechnicianRepository() TechnicianRepositoryInterface
	GetLockRepository() LockRepositoryInterface
}
