package controller

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/services"
	"dispatch-backend/utils/logger"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockControllerLogger implements the logger interface for testing
type MockControllerLogger struct {
	mock.Mock
}

func (m *MockControllerLogger) Debug(args ...interface{})                 { m.Called(args...) }
func (m *MockControllerLogger) Debugf(format string, args ...interface{}) { m.Called(format, args) }
func (m *MockControllerLogger) Info(args ...interface{})                  { m.Called(args...) }
func (m *MockControllerLogger) Infof(format string, args ...interface{})  { m.Called(format, args) }
func (m *MockControllerLogger) Warn(args ...interface{})                  { m.Called(args...) }
func (m *MockControllerLogger) Warnf(format string, args ...interface{})  { m.Called(format, args) }
func (m *MockControllerLogger) Error(args ...interface{})                 { m.Called(args...) }
func (m *MockControllerLogger) Errorf(format string, args ...interface{}) { m.Called(format, args) }
func (m *MockControllerLogger) Fatal(args ...interface{})                 { m.Called(args...) }
func (m *MockControllerLogger) Fatalf(format string, args ...interface{}) { m.Called(format, args) }

func (m *MockControllerLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}

func newMockControllerLogger() *MockControllerLogger {
	l := &MockControllerLogger{}
	for _, method := range []string{"Debug", "Info", "Warn", "Error"} {
		l.On(method, mock.Anything).Maybe()
		l.On(method+"f", mock.Anything, mock.Anything).Maybe()
	}
	l.On("WithFields", mock.Anything).Maybe()
	return l
}

// MockDispatchService implements services.DispatchServiceInterface for testing
type MockDispatchService struct {
	mock.Mock
}

func (m *MockDispatchService) dispatch(args mock.Arguments) (*models.Dispatch, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispatch), args.Error(1)
}

func (m *MockDispatchService) CreateFromJob(ctx context.Context, jobID string, req *models.CreateDispatchRequest, actor string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, jobID, req, actor))
}

func (m *MockDispatchService) UpdateDispatch(ctx context.Context, id string, req *models.UpdateDispatchRequest, actor string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, id, req, actor))
}

func (m *MockDispatchService) UpdateStatus(ctx context.Context, id string, status models.DispatchStatus, actor string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, id, status, actor))
}

func (m *MockDispatchService) StartDispatch(ctx context.Context, id string, actualStartTime *time.Time, actor string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, id, actualStartTime, actor))
}

func (m *MockDispatchService) CompleteDispatch(ctx context.Context, id string, req *models.CompleteDispatchRequest, actor string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, id, req, actor))
}

func (m *MockDispatchService) DeleteDispatch(ctx context.Context, id string, actor string) error {
	return m.Called(ctx, id, actor).Error(0)
}

func (m *MockDispatchService) GetDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	return m.dispatch(m.Called(ctx, id))
}

func (m *MockDispatchService) ListDispatches(ctx context.Context, filter *models.DispatchFilter) (*models.PagedResult[*models.Dispatch], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PagedResult[*models.Dispatch]), args.Error(1)
}

func (m *MockDispatchService) ExportDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Dispatch), args.Error(1)
}

func (m *MockDispatchService) GetStatistics(ctx context.Context, filter *models.DispatchFilter) (*models.DispatchStatistics, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DispatchStatistics), args.Error(1)
}

func (m *MockDispatchService) AddTimeEntry(ctx context.Context, dispatchID string, req *models.CreateTimeEntryRequest, actor string) (*models.TimeEntry, error) {
	args := m.Called(ctx, dispatchID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *MockDispatchService) AddExpense(ctx context.Context, dispatchID string, req *models.CreateExpenseRequest, actor string) (*models.Expense, error) {
	args := m.Called(ctx, dispatchID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockDispatchService) AddMaterialUsage(ctx context.Context, dispatchID string, req *models.CreateMaterialUsageRequest, actor string) (*models.MaterialUsage, error) {
	args := m.Called(ctx, dispatchID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MaterialUsage), args.Error(1)
}

func (m *MockDispatchService) AddNote(ctx context.Context, dispatchID string, req *models.CreateNoteRequest, actor string) (*models.Note, error) {
	args := m.Called(ctx, dispatchID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Note), args.Error(1)
}

func (m *MockDispatchService) AddAttachment(ctx context.Context, dispatchID string, req *models.UploadAttachmentRequest, actor string) (*models.Attachment, error) {
	args := m.Called(ctx, dispatchID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

func (m *MockDispatchService) ApproveTimeEntry(ctx context.Context, dispatchID, entryID, approver string) (*models.TimeEntry, error) {
	args := m.Called(ctx, dispatchID, entryID, approver)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeEntry), args.Error(1)
}

func (m *MockDispatchService) ApproveExpense(ctx context.Context, dispatchID, expenseID, approver string) (*models.Expense, error) {
	args := m.Called(ctx, dispatchID, expenseID, approver)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Expense), args.Error(1)
}

func (m *MockDispatchService) ApproveMaterial(ctx context.Context, dispatchID, materialID, approver string) (*models.MaterialUsage, error) {
	args := m.Called(ctx, dispatchID, materialID, approver)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MaterialUsage), args.Error(1)
}

// MockPlanningService implements services.PlanningServiceInterface for testing
type MockPlanningService struct {
	mock.Mock
}

func (m *MockPlanningService) ValidateAssignment(ctx context.Context, req *models.ValidateAssignmentRequest) (*models.ValidationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ValidationResult), args.Error(1)
}

func (m *MockPlanningService) AssignJob(ctx context.Context, req *models.AssignJobRequest, actor string) (*models.AssignmentResult, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AssignmentResult), args.Error(1)
}

func (m *MockPlanningService) BatchAssign(ctx context.Context, req *models.BatchAssignRequest, actor string) (*models.BatchAssignResult, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchAssignResult), args.Error(1)
}

func (m *MockPlanningService) GetUnassignedJobs(ctx context.Context, filter *models.UnassignedJobFilter) (*models.PagedResult[*models.ServiceOrderJob], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PagedResult[*models.ServiceOrderJob]), args.Error(1)
}

func (m *MockPlanningService) GetTechnicianSchedule(ctx context.Context, technicianID, startDate, endDate string) (*models.TechnicianSchedule, error) {
	args := m.Called(ctx, technicianID, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TechnicianSchedule), args.Error(1)
}

func (m *MockPlanningService) GetAvailableTechnicians(ctx context.Context, date, startTime, endTime string, skills []string) ([]models.TechnicianAvailability, error) {
	args := m.Called(ctx, date, startTime, endTime, skills)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TechnicianAvailability), args.Error(1)
}

// MockInfrastructureService implements services.InfrastructureServiceInterface for testing
type MockInfrastructureService struct {
	mock.Mock
}

func (m *MockInfrastructureService) GetStatus(ctx context.Context) (*models.InfrastructureStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InfrastructureStatus), args.Error(1)
}

func (m *MockInfrastructureService) CheckTables(ctx context.Context) ([]models.TableStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TableStatus), args.Error(1)
}

func (m *MockInfrastructureService) IsWorkerHealthy() (bool, string) {
	args := m.Called()
	return args.Bool(0), args.String(1)
}

type mockContainer struct {
	dispatch       *MockDispatchService
	planning       *MockPlanningService
	infrastructure *MockInfrastructureService
}

func (c *mockContainer) GetDispatchService() services.DispatchServiceInterface { return c.dispatch }
func (c *mockContainer) GetPlanningService() services.PlanningServiceInterface { return c.planning }
func (c *mockContainer) GetInfrastructureService() services.InfrastructureServiceInterface {
	return c.infrastructure
}
