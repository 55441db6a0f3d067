package services

import (
	"context"
	"dispatch-backend/models"
	"time"
)

// DispatchServiceInterface defines the contract for the dispatch lifecycle
type DispatchServiceInterface interface {
	CreateFromJob(ctx context.Context, jobID string, req *models.CreateDispatchRequest, actor string) (*models.Dispatch, error)
	UpdateDispatch(ctx context.Context, id string, req *models.UpdateDispatchRequest, actor string) (*models.Dispatch, error)
	UpdateStatus(ctx context.Context, id string, status models.DispatchStatus, actor string) (*models.Dispatch, error)
	StartDispatch(ctx context.Context, id string, actualStartTime *time.Time, actor string) (*models.Dispatch, error)
	CompleteDispatch(ctx context.Context, id string, req *models.CompleteDispatchRequest, actor string) (*models.Dispatch, error)
	DeleteDispatch(ctx context.Context, id string, actor string) error
	GetDispatch(ctx context.Context, id string) (*models.Dispatch, error)
	ListDispatches(ctx context.Context, filter *models.DispatchFilter) (*models.PagedResult[*models.Dispatch], error)
	ExportDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error)
	GetStatistics(ctx context.Context, filter *models.DispatchFilter) (*models.DispatchStatistics, error)

	AddTimeEntry(ctx context.Context, dispatchID string, req *models.CreateTimeEntryRequest, actor string) (*models.TimeEntry, error)
	AddExpense(ctx context.Context, dispatchID string, req *models.CreateExpenseRequest, actor string) (*models.Expense, error)
	AddMaterialUsage(ctx context.Context, dispatchID string, req *models.CreateMaterialUsageRequest, actor string) (*models.MaterialUsage, error)
	AddNote(ctx context.Context, dispatchID string, req *models.CreateNoteRequest, actor string) (*models.Note, error)
	AddAttachment(ctx context.Context, dispatchID string, req *models.UploadAttachmentRequest, actor string) (*models.Attachment, error)
	ApproveTimeEntry(ctx context.Context, dispatchID, entryID, approver string) (*models.TimeEntry, error)
	ApproveExpense(ctx context.Context, dispatchID, expenseID, approver string) (*models.Expense, error)
	ApproveMaterial(ctx context.Context, dispatchID, materialID, approver string) (*models.MaterialUsage, error)
}

// PlanningServiceInterface defines the contract for assignment and scheduling
type PlanningServiceInterface interface {
	ValidateAssignment(ctx context.Context, req *models.ValidateAssignmentRequest) (*models.ValidationResult, error)
	AssignJob(ctx context.Context, req *models.AssignJobRequest, actor string) (*models.AssignmentResult, error)
	BatchAssign(ctx context.Context, req *models.BatchAssignRequest, actor string) (*models.BatchAssignResult, error)
	GetUnassignedJobs(ctx context.Context, filter *models.UnassignedJobFilter) (*models.PagedResult[*models.ServiceOrderJob], error)
	GetTechnicianSchedule(ctx context.Context, technicianID, startDate, endDate string) (*models.TechnicianSchedule, error)
	GetAvailableTechnicians(ctx context.Context, date, startTime, endTime string, skills []string) ([]models.TechnicianAvailability, error)
}

// InfrastructureServiceInterface defines the contract for infrastructure service
type InfrastructureServiceInterface interface {
	GetStatus(ctx context.Context) (*models.InfrastructureStatus, error)
	CheckTables(ctx context.Context) ([]models.TableStatus, error)
	IsWorkerHealthy() (bool, string)
}

// ServiceContainerInterface defines the contract for the service container
type ServiceContainerInterface interface {
	GetDispatchService() DispatchServiceInterface
	GetPlanningService() PlanningServiceInterface
	GetInfrastructureService() InfrastructureServiceInterface
}
