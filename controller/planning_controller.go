package controller

import (
	"dispatch-backend/export"
	"dispatch-backend/models"
	"dispatch-backend/services"
	"dispatch-backend/utils/logger"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type PlanningController struct {
	planningService services.PlanningServiceInterface
	logger          logger.Logger
	validator       *validator.Validate
	now             func() time.Time
}

func NewPlanningController(planningService services.PlanningServiceInterface, logger logger.Logger) *PlanningController {
	return &PlanningController{
		planningService: planningService,
		logger:          logger,
		validator:       newValidator(),
		now:             time.Now,
	}
}

// AssignJob handles POST /planning/assign
func (h *PlanningController) AssignJob(c *gin.Context) {
	var req models.AssignJobRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	result, err := h.planningService.AssignJob(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, h.logger, "AssignJob", req.JobID, err)
		return
	}

	message := "Job assigned successfully"
	if result.Warning != nil {
		message = result.Warning.Message
	}
	respond(c, http.StatusOK, message, result)
}

// BatchAssign handles POST /planning/batch-assign. Per-entry failures are reported in the body.
func (h *PlanningController) BatchAssign(c *gin.Context) {
	var req models.BatchAssignRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}
	userID, ok := actor(c, h.logger)
	if !ok {
		return
	}

	result, err := h.planningService.BatchAssign(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, h.logger, "BatchAssign", "", err)
		return
	}
	respond(c, http.StatusOK, fmt.Sprintf("%d assigned, %d failed", result.Successful, result.Failed), result)
}

// ValidateAssignment handles POST /planning/validate-assignment
func (h *PlanningController) ValidateAssignment(c *gin.Context) {
	var req models.ValidateAssignmentRequest
	if !bindJSON(c, h.logger, h.validator, &req) {
		return
	}

	result, err := h.planningService.ValidateAssignment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "ValidateAssignment", req.JobID, err)
		return
	}
	respond(c, http.StatusOK, "", result)
}

// GetUnassignedJobs handles GET /planning/unassigned-jobs
func (h *PlanningController) GetUnassignedJobs(c *gin.Context) {
	filter := &models.UnassignedJobFilter{
		Priority:       models.Priority(c.Query("priority")),
		Skills:         splitList(c.Query("skills")),
		ServiceOrderID: c.Query("serviceOrderId"),
	}
	var ok bool
	if filter.PageNumber, ok = queryInt(c, "pageNumber"); !ok {
		return
	}
	if filter.PageSize, ok = queryInt(c, "pageSize"); !ok {
		return
	}

	page, err := h.planningService.GetUnassignedJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "GetUnassignedJobs", "", err)
		return
	}
	respond(c, http.StatusOK, "", page)
}

// GetTechnicianSchedule handles GET /planning/technician-schedule/:id?startDate=&endDate=
func (h *PlanningController) GetTechnicianSchedule(c *gin.Context) {
	schedule, ok := h.schedule(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "", schedule)
}

// ExportTechnicianSchedule handles GET /planning/technician-schedule/:id/export
func (h *PlanningController) ExportTechnicianSchedule(c *gin.Context) {
	schedule, ok := h.schedule(c)
	if !ok {
		return
	}

	now := h.now()
	buf, err := export.TechnicianSchedule(schedule, now)
	if err != nil {
		respondError(c, h.logger, "ExportTechnicianSchedule", schedule.TechnicianID, err)
		return
	}
	name := export.FileName("schedule_"+schedule.TechnicianID, now)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *PlanningController) schedule(c *gin.Context) (*models.TechnicianSchedule, bool) {
	id := c.Param("id")
	startDate, endDate := c.Query("startDate"), c.Query("endDate")
	if startDate == "" || endDate == "" {
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: "startDate and endDate are required",
		})
		return nil, false
	}

	schedule, err := h.planningService.GetTechnicianSchedule(c.Request.Context(), id, startDate, endDate)
	if err != nil {
		respondError(c, h.logger, "GetTechnicianSchedule", id, err)
		return nil, false
	}
	return schedule, true
}

// GetAvailableTechnicians handles GET /planning/available-technicians?date=&startTime=&endTime=&skills=
func (h *PlanningController) GetAvailableTechnicians(c *gin.Context) {
	date, startTime, endTime := c.Query("date"), c.Query("startTime"), c.Query("endTime")
	if date == "" || startTime == "" || endTime == "" {
		respondFailure(c, http.StatusBadRequest, &models.APIError{
			Code:    models.ErrorCodeValidation,
			Message: "date, startTime and endTime are required",
		})
		return
	}

	technicians, err := h.planningService.GetAvailableTechnicians(c.Request.Context(), date, startTime, endTime, splitList(c.Query("skills")))
	if err != nil {
		respondError(c, h.logger, "GetAvailableTechnicians", date, err)
		return
	}
	respond(c, http.StatusOK, "", technicians)
}

// splitList reads a comma separated query value
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
