package controller

import (
	"dispatch-backend/export"
	"dispatch-backend/models"
	"dispatch-backend/services"
	"dispatch-backend/utils"
	"dispatch-backend/utils/logger"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const defaultMaxUploadMB = 10

type DispatchController struct {
	dispatchService services.DispatchServiceInterface
	logger          logger.Logger
	validator       *validator.Validate
	uploadDir       string
	maxUploadBytes  int64
	now             func() time.Time
}

func NewDispatchController(dispatchService services.DispatchServiceInterface, cfg *models.Config, logger logger.Logger) *DispatchController {
	maxMB := cfg.MaxUploadSizeMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	return &DispatchController{
		dispatchService: dispatchService,
		logger:          logger,
		validator:       newValidator(),
		uploadDir:       uploadDir,
		maxUploadBytes:  maxMB << 20,
		now:             time.Now,
	}
}

// CreateFromJob handles POST /dispatches/from-job/:jobId
func (h *DispatchController) CreateFromJob(c *gin.Context) {
	jobID := c.Param("jobId")
	var req models.CreateDispatchRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.CreateFromJob(c.Request.Context(), jobID, &req, userID)
	if err != nil {
		respondError(c, h.logger, "CreateDispatch", jobID, err)
		return
	}
	respond(c, http.StatusCreated, "Dispatch created successfully", dispatch)
}

// ListDispatches handles GET /dispatches
func (h *DispatchController) ListDispatches(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	page, err := h.dispatchService.ListDispatches(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "ListDispatches", "", err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// GetStatistics handles GET /dispatches/statistics
func (h *DispatchController) GetStatistics(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	stats, err := h.dispatchService.GetStatistics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "GetDispatchStatistics", "", err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

// ExportDispatches handles GET /dispatches/export with the full filtered list
func (h *DispatchController) ExportDispatches(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}

	all, err := h.dispatchService.ExportDispatches(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "ExportDispatches", "", err)
		return
	}

	now := h.now()
	buf, err := export.DispatchList(all, now)
	if err != nil {
		respondError(c, h.logger, "ExportDispatches", "", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.FileName("dispatches", now)))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// GetDispatch handles GET /dispatches/:id
func (h *DispatchController) GetDispatch(c *gin.Context) {
	id := c.Param("id")
	dispatch, err := h.dispatchService.GetDispatch(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetDispatch", id, err)
		return
	}
	respond(c, http.StatusOK, "", dispatch)
}

// UpdateDispatch handles PUT /dispatches/:id
func (h *DispatchController) UpdateDispatch(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateDispatchRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.UpdateDispatch(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "UpdateDispatch", id, err)
		return
	}
	respond(c, http.StatusOK, "Dispatch updated successfully", dispatch)
}

// UpdateStatus handles PUT /dispatches/:id/status
func (h *DispatchController) UpdateStatus(c *gin.Context) {
	id := c.Param("id")
	var req models.UpdateDispatchStatusRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.UpdateStatus(c.Request.Context(), id, req.Status, userID)
	if err != nil {
		respondError(c, h.logger, "UpdateDispatchStatus", id, err)
		return
	}
	respond(c, http.StatusOK, "Dispatch status updated", dispatch)
}

// StartDispatch handles POST /dispatches/:id/start. The body is optional.
func (h *DispatchController) StartDispatch(c *gin.Context) {
	id := c.Param("id")
	var req models.StartDispatchRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.StartDispatch(c.Request.Context(), id, req.ActualStartTime, userID)
	if err != nil {
		respondError(c, h.logger, "StartDispatch", id, err)
		return
	}
	respond(c, http.StatusOK, "Dispatch started", dispatch)
}

// CompleteDispatch handles POST /dispatches/:id/complete. The body is optional.
func (h *DispatchController) CompleteDispatch(c *gin.Context) {
	id := c.Param("id")
	var req models.CompleteDispatchRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	dispatch, err := h.dispatchService.CompleteDispatch(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "CompleteDispatch", id, err)
		return
	}
	respond(c, http.StatusOK, "Dispatch completed", dispatch)
}

// DeleteDispatch handles DELETE /dispatches/:id
func (h *DispatchController) DeleteDispatch(c *gin.Context) {
	id := c.Param("id")
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}
	if err := h.dispatchService.DeleteDispatch(c.Request.Context(), id, userID); err != nil {
		respondError(c, h.logger, "DeleteDispatch", id, err)
		return
	}
	respond(c, http.StatusOK, "Dispatch deleted successfully", nil)
}

// AddTimeEntry handles POST /dispatches/:id/time-entries
func (h *DispatchController) AddTimeEntry(c *gin.Context) {
	id := c.Param("id")
	var req models.CreateTimeEntryRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	entry, err := h.dispatchService.AddTimeEntry(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "AddTimeEntry", id, err)
		return
	}
	respond(c, http.StatusCreated, "Time entry added", entry)
}

// AddExpense handles POST /dispatches/:id/expenses
func (h *DispatchController) AddExpense(c *gin.Context) {
	id := c.Param("id")
	var req models.CreateExpenseRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	expense, err := h.dispatchService.AddExpense(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "AddExpense", id, err)
		return
	}
	respond(c, http.StatusCreated, "Expense added", expense)
}

// AddMaterialUsage handles POST /dispatches/:id/materials
func (h *DispatchController) AddMaterialUsage(c *gin.Context) {
	id := c.Param("id")
	var req models.CreateMaterialUsageRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	material, err := h.dispatchService.AddMaterialUsage(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "AddMaterialUsage", id, err)
		return
	}
	respond(c, http.StatusCreated, "Material usage recorded", material)
}

// AddNote handles POST /dispatches/:id/notes
func (h *DispatchController) AddNote(c *gin.Context) {
	id := c.Param("id")
	var req models.CreateNoteRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	note, err := h.dispatchService.AddNote(c.Request.Context(), id, &req, userID)
	if err != nil {
		respondError(c, h.logger, "AddNote", id, err)
		return
	}
	respond(c, http.StatusCreated, "Note added", note)
}

// AddAttachment handles POST /dispatches/:id/attachments (multipart, field "file")
func (h *DispatchController) AddAttachment(c *gin.Context) {
	id := c.Param("id")
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: "a file is required",
			Field:   "file",
		})
		return
	}
	if file.Size > h.maxUploadBytes {
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: fmt.Sprintf("file exceeds the %d MB limit", h.maxUploadBytes>>20),
			Field:   "file",
		})
		return
	}

	dir := filepath.Join(h.uploadDir, filepath.Base(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(c, h.logger, "AddAttachment", id, err)
		return
	}
	name := filepath.Base(file.Filename)
	path := filepath.Join(dir, utils.GenerateUUID()+"_"+name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		respondError(c, h.logger, "AddAttachment", id, err)
		return
	}

	attachment, err := h.dispatchService.AddAttachment(c.Request.Context(), id, &models.UploadAttachmentRequest{
		FileName:    name,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		Category:    c.PostForm("category"),
		StoragePath: path,
	}, userID)
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			h.logger.Warnf("Failed to remove orphaned upload %s: %v", path, removeErr)
		}
		respondError(c, h.logger, "AddAttachment", id, err)
		return
	}
	respond(c, http.StatusCreated, "Attachment uploaded", attachment)
}

// ApproveTimeEntry handles POST /dispatches/:id/time-entries/:entryId/approve
func (h *DispatchController) ApproveTimeEntry(c *gin.Context) {
	id, entryID := c.Param("id"), c.Param("entryId")
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}
	entry, err := h.dispatchService.ApproveTimeEntry(c.Request.Context(), id, entryID, userID)
	if err != nil {
		respondError(c, h.logger, "ApproveTimeEntry", entryID, err)
		return
	}
	respond(c, http.StatusOK, "Time entry approved", entry)
}

// ApproveExpense handles POST /dispatches/:id/expenses/:expenseId/approve
func (h *DispatchController) ApproveExpense(c *gin.Context) {
	id, expenseID := c.Param("id"), c.Param("expenseId")
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}
	expense, err := h.dispatchService.ApproveExpense(c.Request.Context(), id, expenseID, userID)
	if err != nil {
		respondError(c, h.logger, "ApproveExpense", expenseID, err)
		return
	}
	respond(c, http.StatusOK, "Expense approved", expense)
}

// ApproveMaterial handles POST /dispatches/:id/materials/:materialId/approve
func (h *DispatchController) ApproveMaterial(c *gin.Context) {
	id, materialID := c.Param("id"), c.Param("materialId")
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}
	material, err := h.dispatchService.ApproveMaterial(c.Request.Context(), id, materialID, userID)
	if err != nil {
		respondError(c, h.logger, "ApproveMaterial", materialID, err)
		return
	}
	respond(c, http.StatusOK, "Material usage approved", material)
}

// filter reads the shared list/statistics query parameters
func (h *DispatchController) filter(c *gin.Context) (*models.DispatchFilter, bool) {
	filter := &models.DispatchFilter{
		Status:         models.DispatchStatus(c.Query("status")),
		Priority:       models.Priority(c.Query("priority")),
		TechnicianID:   c.Query("technicianId"),
		ServiceOrderID: c.Query("serviceOrderId"),
		DateFrom:       c.Query("dateFrom"),
		DateTo:         c.Query("dateTo"),
	}

	var ok bool
	if filter.PageNumber, ok = queryInt(c, "pageNumber"); !ok {
		return nil, false
	}
	if filter.PageSize, ok = queryInt(c, "pageSize"); !ok {
		return nil, false
	}
	return filter, true
}

// queryInt parses an optional integer query parameter; zero means absent
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: name + " must be an integer",
			Field:   name,
		})
		return 0, false
	}
	return n, true
}
