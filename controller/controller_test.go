package controller

import (
	"bytes"
	"context"
	"dispatch-backend/export"
	"dispatch-backend/metrics"
	"dispatch-backend/models"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
)

const testSecret = "controller-test-secret"

type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
}

type ControllerTestSuite struct {
	suite.Suite
	dispatch       *MockDispatchService
	planning       *MockPlanningService
	infrastructure *MockInfrastructureService
	config         *models.Config
	router         *gin.Engine
}

func (suite *ControllerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.dispatch = &MockDispatchService{}
	suite.planning = &MockPlanningService{}
	suite.infrastructure = &MockInfrastructureService{}
	suite.config = &models.Config{
		AppVersion:      "2.0.0",
		JWTSecret:       testSecret,
		BasePath:        "/api",
		UploadDir:       suite.T().TempDir(),
		MaxUploadSizeMB: 1,
	}

	container := &mockContainer{dispatch: suite.dispatch, planning: suite.planning, infrastructure: suite.infrastructure}
	c := NewController(suite.config, container, metrics.NopRecorder{}, prometheus.NewRegistry(), newMockControllerLogger())
	suite.router = c.Router()
}

func (suite *ControllerTestSuite) TearDownTest() {
	suite.dispatch.AssertExpectations(suite.T())
	suite.planning.AssertExpectations(suite.T())
	suite.infrastructure.AssertExpectations(suite.T())
}

func (suite *ControllerTestSuite) token(userID string, role models.UserRole) string {
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(suite.T(), err)
	return signed
}

func (suite *ControllerTestSuite) send(method, path string, body interface{}, role models.UserRole) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+suite.token("42", role))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ControllerTestSuite) decode(w *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (suite *ControllerTestSuite) TestCreateFromJob() {
	suite.dispatch.On("CreateFromJob", mock.Anything, "JOB-1", mock.MatchedBy(func(req *models.CreateDispatchRequest) bool {
		return req.ScheduledDate == "2024-06-01" && req.StartTime == "09:00" && len(req.TechnicianIDs) == 1
	}), "42").Return(&models.Dispatch{ID: "d-1", DispatchNumber: "DSP-20240601-3F2A9C1E", Status: models.DispatchStatusPending}, nil)

	w := suite.send(http.MethodPost, "/api/dispatches/from-job/JOB-1", map[string]interface{}{
		"technicianIds": []string{"7"},
		"scheduledDate": "2024-06-01",
		"startTime":     "09:00",
		"endTime":       "11:00",
	}, models.UserRoleDispatcher)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	env := suite.decode(w)
	assert.True(suite.T(), env.Success)
	var dispatch models.Dispatch
	require.NoError(suite.T(), json.Unmarshal(env.Data, &dispatch))
	assert.Equal(suite.T(), "d-1", dispatch.ID)
	assert.Equal(suite.T(), models.DispatchStatusPending, dispatch.Status)
}

func (suite *ControllerTestSuite) TestRequestValidation() {
	w := suite.send(http.MethodPost, "/api/dispatches/from-job/JOB-1", map[string]interface{}{
		"startTime": "9am",
	}, models.UserRoleDispatcher)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	env := suite.decode(w)
	assert.False(suite.T(), env.Success)
	assert.Equal(suite.T(), models.ErrorCodeValidation, env.Error.Code)
	assert.Equal(suite.T(), "ScheduledDate", env.Error.Field)
	assert.Contains(suite.T(), env.Error.Message, "ScheduledDate is required")
	assert.Contains(suite.T(), env.Error.Message, "StartTime must be a time of day in HH:MM format")

	w = suite.send(http.MethodPost, "/api/dispatches/from-job/JOB-1", "{not json", models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), models.ErrorCodeValidation, suite.decode(w).Error.Code)
}

func (suite *ControllerTestSuite) TestEndOfDayTimeAccepted() {
	suite.planning.On("ValidateAssignment", mock.Anything, mock.MatchedBy(func(req *models.ValidateAssignmentRequest) bool {
		return req.StartTime == "22:00" && req.EndTime == "24:00"
	})).Return(&models.ValidationResult{IsValid: true}, nil).Once()

	w := suite.send(http.MethodPost, "/api/planning/validate-assignment", map[string]interface{}{
		"jobId":         "JOB-1",
		"technicianIds": []string{"7"},
		"scheduledDate": "2024-06-01",
		"startTime":     "22:00",
		"endTime":       "24:00",
	}, models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	for _, bad := range []string{"24:30", "25:00", "9:00pm"} {
		w = suite.send(http.MethodPost, "/api/planning/validate-assignment", map[string]interface{}{
			"jobId":         "JOB-1",
			"technicianIds": []string{"7"},
			"scheduledDate": "2024-06-01",
			"startTime":     "22:00",
			"endTime":       bad,
		}, models.UserRoleDispatcher)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, bad)
		assert.Equal(suite.T(), "EndTime", suite.decode(w).Error.Field, bad)
	}
}

func (suite *ControllerTestSuite) TestErrorMapping() {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", models.NewNotFoundError("dispatch", "d-1"), http.StatusNotFound, models.ErrorCodeNotFound},
		{"transition", &models.TransitionError{From: models.DispatchStatusCompleted, To: models.DispatchStatusPending}, http.StatusBadRequest, models.ErrorCodeInvalidTransition},
		{"state", &models.StateError{Operation: "start", Current: models.DispatchStatusCompleted}, http.StatusBadRequest, models.ErrorCodeInvalidState},
		{"validation", models.NewValidationError("status", "unknown"), http.StatusBadRequest, models.ErrorCodeValidation},
		{"wrapped not found", errors.Join(errors.New("load"), models.NewNotFoundError("job", "x")), http.StatusNotFound, models.ErrorCodeNotFound},
		{"internal", errors.New("dynamodb: connection reset"), http.StatusInternalServerError, models.ErrorCodeInternal},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.dispatch.On("UpdateStatus", mock.Anything, "d-1", models.DispatchStatusPending, "42").Return(nil, tt.err).Once()

			w := suite.send(http.MethodPut, "/api/dispatches/d-1/status", map[string]string{"status": "pending"}, models.UserRoleTechnician)

			assert.Equal(suite.T(), tt.status, w.Code)
			env := suite.decode(w)
			assert.False(suite.T(), env.Success)
			assert.Equal(suite.T(), tt.code, env.Error.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(suite.T(), env.Error.Message, "dynamodb")
			}
		})
	}
}

func (suite *ControllerTestSuite) TestAuthentication() {
	w := suite.send(http.MethodGet, "/api/dispatches/d-1", nil, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.Equal(suite.T(), models.ErrorCodeUnauthorized, suite.decode(w).Error.Code)

	w = suite.send(http.MethodPost, "/api/planning/assign", map[string]interface{}{}, models.UserRoleTechnician)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.send(http.MethodPost, "/api/dispatches/d-1/expenses/e-1/approve", nil, models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.send(http.MethodGet, "/api/infrastructure/status", nil, models.UserRoleManager)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *ControllerTestSuite) TestAssignJobConflict() {
	conflicts := []models.AssignmentConflict{
		{Type: models.ConflictOnLeave, TechnicianID: "8", Message: "on leave"},
		{Type: models.ConflictTimeConflict, TechnicianID: "7", Message: "overlaps", ConflictingDispatchID: "d-9"},
	}
	suite.planning.On("AssignJob", mock.Anything, mock.AnythingOfType("*models.AssignJobRequest"), "42").
		Return(nil, &models.ConflictError{Conflicts: conflicts})

	w := suite.send(http.MethodPost, "/api/planning/assign", map[string]interface{}{
		"jobId":         "JOB-1",
		"technicianIds": []string{"7", "8"},
		"scheduledDate": "2024-06-01",
		"startTime":     "10:00",
		"endTime":       "11:00",
	}, models.UserRoleDispatcher)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	env := suite.decode(w)
	assert.Equal(suite.T(), models.ErrorCodeAssignmentConflict, env.Error.Code)
	assert.Equal(suite.T(), conflicts, env.Error.Conflicts)
}

func (suite *ControllerTestSuite) TestHandlersUseRequestContext() {
	suite.planning.On("ValidateAssignment", mock.MatchedBy(func(ctx context.Context) bool {
		return errors.Is(ctx.Err(), context.Canceled)
	}), mock.AnythingOfType("*models.ValidateAssignmentRequest")).Return(&models.ValidationResult{IsValid: true}, nil).Once()

	raw, err := json.Marshal(map[string]interface{}{
		"jobId":         "JOB-1",
		"technicianIds": []string{"7"},
		"scheduledDate": "2024-06-01",
		"startTime":     "10:00",
		"endTime":       "11:00",
	})
	require.NoError(suite.T(), err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/planning/validate-assignment", bytes.NewReader(raw)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.token("42", models.UserRoleDispatcher))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *ControllerTestSuite) TestAssignJobWarning() {
	suite.planning.On("AssignJob", mock.Anything, mock.MatchedBy(func(req *models.AssignJobRequest) bool {
		return req.AutoCreateDispatch && req.Priority == models.PriorityHigh
	}), "42").Return(&models.AssignmentResult{
		Job:     &models.ServiceOrderJob{JobID: "JOB-1", Status: models.JobStatusScheduled},
		Warning: &models.DispatchCreationWarning{Message: "job assigned but dispatch could not be created"},
	}, nil)

	w := suite.send(http.MethodPost, "/api/planning/assign", map[string]interface{}{
		"jobId":              "JOB-1",
		"technicianIds":      []string{"7"},
		"scheduledDate":      "2024-06-01",
		"startTime":          "10:00",
		"endTime":            "11:00",
		"priority":           "high",
		"autoCreateDispatch": true,
	}, models.UserRoleManager)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	env := suite.decode(w)
	assert.True(suite.T(), env.Success)
	assert.Equal(suite.T(), "job assigned but dispatch could not be created", env.Message)
}

func (suite *ControllerTestSuite) TestListDispatchesFilter() {
	suite.dispatch.On("ListDispatches", mock.Anything, mock.MatchedBy(func(f *models.DispatchFilter) bool {
		return f.Status == models.DispatchStatusAssigned && f.TechnicianID == "7" &&
			f.DateFrom == "2024-06-01" && f.PageNumber == 2 && f.PageSize == 5
	})).Return(&models.PagedResult[*models.Dispatch]{Items: []*models.Dispatch{}, PageNumber: 2, PageSize: 5}, nil)

	w := suite.send(http.MethodGet, "/api/dispatches?status=assigned&technicianId=7&dateFrom=2024-06-01&pageNumber=2&pageSize=5", nil, models.UserRoleTechnician)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.send(http.MethodGet, "/api/dispatches?pageSize=many", nil, models.UserRoleTechnician)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "pageSize", suite.decode(w).Error.Field)
}

func (suite *ControllerTestSuite) TestExportDispatchesFullList() {
	suite.dispatch.On("ExportDispatches", mock.Anything, mock.MatchedBy(func(f *models.DispatchFilter) bool {
		return f.TechnicianID == "7"
	})).Return([]*models.Dispatch{{DispatchNumber: "DSP-1"}, {DispatchNumber: "DSP-2"}}, nil).Once()

	w := suite.send(http.MethodGet, "/api/dispatches/export?technicianId=7", nil, models.UserRoleManager)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "attachment; filename=dispatches_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(suite.T(), err)
	defer f.Close()
	rows, err := f.GetRows("Dispatches")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), rows, 6)
	assert.Equal(suite.T(), "DSP-2", rows[5][0])
	suite.dispatch.AssertNotCalled(suite.T(), "ListDispatches", mock.Anything, mock.Anything)
}

func (suite *ControllerTestSuite) TestStartWithoutBody() {
	suite.dispatch.On("StartDispatch", mock.Anything, "d-1", (*time.Time)(nil), "42").
		Return(&models.Dispatch{ID: "d-1", Status: models.DispatchStatusInProgress}, nil)

	w := suite.send(http.MethodPost, "/api/dispatches/d-1/start", nil, models.UserRoleTechnician)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *ControllerTestSuite) TestCompleteWithBody() {
	suite.dispatch.On("CompleteDispatch", mock.Anything, "d-1", mock.MatchedBy(func(req *models.CompleteDispatchRequest) bool {
		return req.CompletionPercentage != nil && *req.CompletionPercentage == 80 && req.ActualEndTime != nil
	}), "42").Return(&models.Dispatch{ID: "d-1", Status: models.DispatchStatusCompleted}, nil)

	w := suite.send(http.MethodPost, "/api/dispatches/d-1/complete", map[string]interface{}{
		"actualEndTime":        "2024-06-01T11:30:00Z",
		"completionPercentage": 80,
	}, models.UserRoleTechnician)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *ControllerTestSuite) upload(content []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if content != nil {
		part, err := writer.CreateFormFile("file", "../../report.pdf")
		require.NoError(suite.T(), err)
		_, err = part.Write(content)
		require.NoError(suite.T(), err)
	}
	require.NoError(suite.T(), writer.WriteField("category", "photo"))
	require.NoError(suite.T(), writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/dispatches/d-1/attachments", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+suite.token("42", models.UserRoleTechnician))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *ControllerTestSuite) TestUploadAttachment() {
	var stored string
	suite.dispatch.On("AddAttachment", mock.Anything, "d-1", mock.MatchedBy(func(req *models.UploadAttachmentRequest) bool {
		stored = req.StoragePath
		return req.FileName == "report.pdf" && req.SizeBytes == 5 && req.Category == "photo"
	}), "42").Return(&models.Attachment{ID: "a-1", FileName: "report.pdf"}, nil)

	w := suite.upload([]byte("%PDF-"))

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.True(suite.T(), strings.HasPrefix(stored, filepath.Join(suite.config.UploadDir, "d-1")))
	content, err := os.ReadFile(stored)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "%PDF-", string(content))
}

func (suite *ControllerTestSuite) TestUploadAttachmentRejected() {
	w := suite.upload(nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "file", suite.decode(w).Error.Field)

	w = suite.upload(bytes.Repeat([]byte("x"), 1<<20+1))
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), suite.decode(w).Error.Message, "1 MB")
}

func (suite *ControllerTestSuite) TestUploadRemovedWhenServiceFails() {
	var stored string
	suite.dispatch.On("AddAttachment", mock.Anything, "d-1", mock.MatchedBy(func(req *models.UploadAttachmentRequest) bool {
		stored = req.StoragePath
		return true
	}), "42").Return(nil, models.NewNotFoundError("dispatch", "d-1"))

	w := suite.upload([]byte("data"))

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	_, err := os.Stat(stored)
	assert.True(suite.T(), os.IsNotExist(err))
}

func (suite *ControllerTestSuite) TestAvailableTechnicians() {
	suite.planning.On("GetAvailableTechnicians", mock.Anything, "2024-06-01", "13:00", "15:00", []string{"hvac", "electrical"}).
		Return([]models.TechnicianAvailability{{TechnicianID: "8", IsAvailable: true}}, nil)

	w := suite.send(http.MethodGet, "/api/planning/available-technicians?date=2024-06-01&startTime=13:00&endTime=15:00&skills=hvac,%20electrical", nil, models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.send(http.MethodGet, "/api/planning/available-technicians?date=2024-06-01", nil, models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *ControllerTestSuite) TestTechnicianScheduleExport() {
	suite.planning.On("GetTechnicianSchedule", mock.Anything, "7", "2024-06-01", "2024-06-07").Return(&models.TechnicianSchedule{
		TechnicianID:   "7",
		TechnicianName: "Ada Lovelace",
		StartDate:      "2024-06-01",
		EndDate:        "2024-06-07",
	}, nil)

	w := suite.send(http.MethodGet, "/api/planning/technician-schedule/7/export?startDate=2024-06-01&endDate=2024-06-07", nil, models.UserRoleDispatcher)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "schedule_7_")

	w = suite.send(http.MethodGet, "/api/planning/technician-schedule/7", nil, models.UserRoleDispatcher)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *ControllerTestSuite) TestInfrastructureStatus() {
	suite.infrastructure.On("GetStatus", mock.Anything).Return(&models.InfrastructureStatus{
		WorkerRunning: true,
		Healthy:       false,
		Message:       "Infrastructure setup in progress",
	}, nil)

	w := suite.send(http.MethodGet, "/api/infrastructure/status", nil, models.UserRoleAdmin)

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	env := suite.decode(w)
	assert.False(suite.T(), env.Success)
	assert.Equal(suite.T(), "Infrastructure setup in progress", env.Message)
}

func (suite *ControllerTestSuite) TestHealthAndMetrics() {
	suite.infrastructure.On("IsWorkerHealthy").Return(true, "Infrastructure setup completed successfully")

	w := suite.send(http.MethodGet, "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"version":"2.0.0"`)
	assert.Contains(suite.T(), w.Body.String(), `"healthy":true`)

	w = suite.send(http.MethodGet, "/metrics", nil, "")
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}
