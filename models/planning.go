package models

import "fmt"

// ConflictType names the reason an assignment cannot proceed
type ConflictType string

const (
	ConflictJobNotFound          ConflictType = "job_not_found"
	ConflictInvalidTechnicianID  ConflictType = "invalid_technician_id"
	ConflictTechnicianNotFound   ConflictType = "technician_not_found"
	ConflictOnLeave              ConflictType = "on_leave"
	ConflictTimeConflict         ConflictType = "time_conflict"
	ConflictAssignmentInProgress ConflictType = "assignment_in_progress"
)

// AssignmentConflict describes one reason an assignment request is illegal
type AssignmentConflict struct {
	Type                  ConflictType `json:"type"`
	TechnicianID          string       `json:"technicianId,omitempty"`
	Message               string       `json:"message"`
	ConflictingDispatchID string       `json:"conflictingDispatchId,omitempty"`
	ConflictingDispatchNo string       `json:"conflictingDispatchNumber,omitempty"`
	ConflictingStartTime  string       `json:"conflictingStartTime,omitempty"`
	ConflictingEndTime    string       `json:"conflictingEndTime,omitempty"`
}

func (c AssignmentConflict) String() string {
	if c.TechnicianID == "" {
		return fmt.Sprintf("%s: %s", c.Type, c.Message)
	}
	return fmt.Sprintf("%s (%s): %s", c.Type, c.TechnicianID, c.Message)
}

// ValidationResult is the outcome of validating an assignment request
type ValidationResult struct {
	IsValid   bool                 `json:"isValid"`
	Conflicts []AssignmentConflict `json:"conflicts"`
}

// ValidateAssignmentRequest is the input of the assignment validator
type ValidateAssignmentRequest struct {
	JobID         string   `json:"jobId" validate:"required"`
	TechnicianIDs []string `json:"technicianIds" validate:"required,min=1,dive,required"`
	ScheduledDate string   `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	StartTime     string   `json:"startTime" validate:"required,clock"`
	EndTime       string   `json:"endTime" validate:"required,clock"`
}

// AssignJobRequest is the body of POST /planning/assign
type AssignJobRequest struct {
	JobID              string   `json:"jobId" validate:"required"`
	TechnicianIDs      []string `json:"technicianIds" validate:"required,min=1,dive,required"`
	ScheduledDate      string   `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	StartTime          string   `json:"startTime" validate:"required,clock"`
	EndTime            string   `json:"endTime" validate:"required,clock"`
	Priority           Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	AutoCreateDispatch bool     `json:"autoCreateDispatch"`
	Notes              string   `json:"notes,omitempty" validate:"max=2000"`
}

// ToValidation narrows an assignment to the validator's input
func (r *AssignJobRequest) ToValidation() ValidateAssignmentRequest {
	return ValidateAssignmentRequest{
		JobID:         r.JobID,
		TechnicianIDs: r.TechnicianIDs,
		ScheduledDate: r.ScheduledDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
	}
}

// DispatchCreationWarning reports that a job was assigned but its dispatch could not be created
type DispatchCreationWarning struct {
	Message string `json:"message"`
}

// AssignmentResult is the outcome of a successful assignment
type AssignmentResult struct {
	Job      *ServiceOrderJob         `json:"job"`
	Dispatch *Dispatch                `json:"dispatch,omitempty"`
	Warning  *DispatchCreationWarning `json:"warning,omitempty"`
}

// BatchAssignRequest is the body of POST /planning/batch-assign
type BatchAssignRequest struct {
	Assignments          []AssignJobRequest `json:"assignments" validate:"required,min=1,max=100,dive"`
	AutoCreateDispatches bool               `json:"autoCreateDispatches"`
}

type BatchItemStatus string

const (
	BatchItemSuccess BatchItemStatus = "success"
	BatchItemFailed  BatchItemStatus = "failed"
)

// BatchAssignItemResult is the per-entry outcome of a batch assignment
type BatchAssignItemResult struct {
	JobID      string                   `json:"jobId"`
	Status     BatchItemStatus          `json:"status"`
	Error      string                   `json:"error,omitempty"`
	Conflicts  []AssignmentConflict     `json:"conflicts,omitempty"`
	DispatchID string                   `json:"dispatchId,omitempty"`
	Warning    *DispatchCreationWarning `json:"warning,omitempty"`
}

type BatchAssignResult struct {
	Successful int                     `json:"successful"`
	Failed     int                     `json:"failed"`
	Results    []BatchAssignItemResult `json:"results"`
}
