package services

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/repository"
	"dispatch-backend/utils/logger"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// AssignmentValidator checks whether technicians can take a job in a given slot. It never writes.
type AssignmentValidator struct {
	jobRepo        repository.JobRepositoryInterface
	technicianRepo repository.TechnicianRepositoryInterface
	dispatchRepo   repository.DispatchRepositoryInterface
	logger         logger.Logger
}

func NewAssignmentValidator(repoContainer repository.RepositoryContainerInterface, logger logger.Logger) *AssignmentValidator {
	return &AssignmentValidator{
		jobRepo:        repoContainer.GetJobRepository(),
		technicianRepo: repoContainer.GetTechnicianRepository(),
		dispatchRepo:   repoContainer.GetDispatchRepository(),
		logger:         logger,
	}
}

// Validate collects every conflict for the request instead of stopping at the first one.
// Malformed dates or windows are returned as a ValidationError, store failures as plain errors.
func (v *AssignmentValidator) Validate(ctx context.Context, req *models.ValidateAssignmentRequest) (*models.ValidationResult, error) {
	if req == nil {
		return nil, models.NewValidationError("", "assignment request is required")
	}
	if _, err := models.ParseDate(req.ScheduledDate); err != nil {
		return nil, models.NewValidationError("scheduledDate", err.Error())
	}
	window, err := models.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, models.NewValidationError("endTime", err.Error())
	}

	result := &models.ValidationResult{Conflicts: []models.AssignmentConflict{}}

	if _, err := v.jobRepo.GetJob(ctx, req.JobID); err != nil {
		if !models.IsNotFound(err) {
			return nil, fmt.Errorf("validate assignment: load job %s: %w", req.JobID, err)
		}
		result.Conflicts = append(result.Conflicts, models.AssignmentConflict{
			Type:    models.ConflictJobNotFound,
			Message: fmt.Sprintf("job %s not found", req.JobID),
		})
		return result, nil
	}

	for _, id := range distinctIDs(req.TechnicianIDs) {
		conflicts, err := v.checkTechnician(ctx, id, req.ScheduledDate, window)
		if err != nil {
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, conflicts...)
	}

	result.IsValid = len(result.Conflicts) == 0
	if !result.IsValid {
		v.logger.Infof("Assignment of job %s on %s %s has %d conflict(s)", req.JobID, req.ScheduledDate, window, len(result.Conflicts))
	}
	return result, nil
}

func (v *AssignmentValidator) checkTechnician(ctx context.Context, id, date string, window models.TimeWindow) ([]models.AssignmentConflict, error) {
	if !ValidTechnicianID(id) {
		return []models.AssignmentConflict{{
			Type:         models.ConflictInvalidTechnicianID,
			TechnicianID: id,
			Message:      fmt.Sprintf("%q is not a valid technician id", id),
		}}, nil
	}

	user, err := v.technicianRepo.GetUser(ctx, id)
	if err != nil && !models.IsNotFound(err) {
		return nil, fmt.Errorf("validate assignment: load technician %s: %w", id, err)
	}
	if err != nil || !user.IsTechnician() {
		return []models.AssignmentConflict{{
			Type:         models.ConflictTechnicianNotFound,
			TechnicianID: id,
			Message:      fmt.Sprintf("technician %s not found", id),
		}}, nil
	}

	leaves, err := v.technicianRepo.GetLeaves(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("validate assignment: load leaves of %s: %w", id, err)
	}
	for _, leave := range leaves {
		if leave.Covers(date) {
			return []models.AssignmentConflict{{
				Type:         models.ConflictOnLeave,
				TechnicianID: id,
				Message:      fmt.Sprintf("%s is on leave from %s to %s", user.FullName(), leave.StartDate, leave.EndDate),
			}}, nil
		}
	}

	dispatches, err := v.dispatchRepo.GetDispatchesForTechnician(ctx, id, date, date)
	if err != nil {
		return nil, fmt.Errorf("validate assignment: load dispatches of %s: %w", id, err)
	}

	var conflicts []models.AssignmentConflict
	for _, d := range dispatches {
		if d.IsDeleted || !d.Status.BlocksSchedule() || d.ScheduledDate != date {
			continue
		}
		existing := d.Window()
		if !window.Overlaps(existing) {
			continue
		}
		conflicts = append(conflicts, models.AssignmentConflict{
			Type:                  models.ConflictTimeConflict,
			TechnicianID:          id,
			Message:               fmt.Sprintf("overlaps dispatch %s (%s) on %s", d.DispatchNumber, existing, date),
			ConflictingDispatchID: d.ID,
			ConflictingDispatchNo: d.DispatchNumber,
			ConflictingStartTime:  models.FormatClock(existing.Start),
			ConflictingEndTime:    models.FormatClock(existing.End),
		})
	}
	return conflicts, nil
}

// ValidTechnicianID accepts positive integers and UUIDs
func ValidTechnicianID(id string) bool {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n > 0
	}
	_, err := uuid.Parse(id)
	return err == nil
}
