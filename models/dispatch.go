package models

import "time"

// DispatchStatus represents the lifecycle state of a dispatch
type DispatchStatus string

const (
	DispatchStatusPending    DispatchStatus = "pending"
	DispatchStatusAssigned   DispatchStatus = "assigned"
	DispatchStatusInProgress DispatchStatus = "in_progress"
	DispatchStatusCompleted  DispatchStatus = "completed"
	DispatchStatusCancelled  DispatchStatus = "cancelled"
)

// DispatchStatuses lists every status in lifecycle order.
var DispatchStatuses = []DispatchStatus{
	DispatchStatusPending,
	DispatchStatusAssigned,
	DispatchStatusInProgress,
	DispatchStatusCompleted,
	DispatchStatusCancelled,
}

// DispatchTransitions holds the legal target states for each status.
// Completed and cancelled are terminal.
var DispatchTransitions = map[DispatchStatus][]DispatchStatus{
	DispatchStatusPending:    {DispatchStatusAssigned, DispatchStatusCancelled},
	DispatchStatusAssigned:   {DispatchStatusInProgress, DispatchStatusCancelled},
	DispatchStatusInProgress: {DispatchStatusCompleted, DispatchStatusCancelled},
	DispatchStatusCompleted:  {},
	DispatchStatusCancelled:  {},
}

// IsValid reports whether s is a known dispatch status
func (s DispatchStatus) IsValid() bool {
	_, ok := DispatchTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed by the transition table.
// A self-transition is not part of the table.
func (s DispatchStatus) CanTransitionTo(target DispatchStatus) bool {
	for _, allowed := range DispatchTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s DispatchStatus) IsTerminal() bool {
	return s.IsValid() && len(DispatchTransitions[s]) == 0
}

// BlocksSchedule reports whether a dispatch in this status still occupies its technicians' time.
func (s DispatchStatus) BlocksSchedule() bool {
	return s != DispatchStatusCompleted && s != DispatchStatusCancelled
}

// Priority is shared by dispatches and service order jobs
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists all priorities, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Rank orders priorities for sorting; higher is more urgent. Unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Dispatch is a scheduled unit of field work assigned to one or more technicians
type Dispatch struct {
	ID                   string         `json:"id" dynamodbav:"dispatchID"`
	DispatchNumber       string         `json:"dispatchNumber" dynamodbav:"dispatchNumber"`
	JobID                string         `json:"jobId,omitempty" dynamodbav:"jobID,omitempty"`
	ServiceOrderID       string         `json:"serviceOrderId,omitempty" dynamodbav:"serviceOrderID,omitempty"`
	Status               DispatchStatus `json:"status" dynamodbav:"status"`
	Priority             Priority       `json:"priority" dynamodbav:"priority"`
	ScheduledDate        string         `json:"scheduledDate" dynamodbav:"scheduledDate"`
	StartTime            string         `json:"startTime,omitempty" dynamodbav:"startTime,omitempty"`
	EndTime              string         `json:"endTime,omitempty" dynamodbav:"endTime,omitempty"`
	EstimatedDuration    *int           `json:"estimatedDuration,omitempty" dynamodbav:"estimatedDuration,omitempty"`
	ActualStartTime      *time.Time     `json:"actualStartTime,omitempty" dynamodbav:"actualStartTime,omitempty"`
	ActualEndTime        *time.Time     `json:"actualEndTime,omitempty" dynamodbav:"actualEndTime,omitempty"`
	ActualDuration       *int           `json:"actualDuration,omitempty" dynamodbav:"actualDuration,omitempty"`
	CompletionPercentage int            `json:"completionPercentage" dynamodbav:"completionPercentage"`
	Notes                string         `json:"notes,omitempty" dynamodbav:"notes,omitempty"`

	IsDeleted bool       `json:"isDeleted" dynamodbav:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" dynamodbav:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty" dynamodbav:"deletedBy,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty" dynamodbav:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty" dynamodbav:"updatedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`

	// Populated from their own tables on read
	Technicians   []DispatchTechnician `json:"assignedTechnicians" dynamodbav:"-"`
	TimeEntries   []TimeEntry          `json:"timeEntries,omitempty" dynamodbav:"-"`
	Expenses      []Expense            `json:"expenses,omitempty" dynamodbav:"-"`
	Materials     []MaterialUsage      `json:"materials,omitempty" dynamodbav:"-"`
	Attachments   []Attachment         `json:"attachments,omitempty" dynamodbav:"-"`
	DispatchNotes []Note               `json:"dispatchNotes,omitempty" dynamodbav:"-"`
}

// TechnicianIDs returns the ids of the assigned technicians in assignment order
func (d *Dispatch) TechnicianIDs() []string {
	ids := make([]string, 0, len(d.Technicians))
	for _, t := range d.Technicians {
		ids = append(ids, t.TechnicianID)
	}
	return ids
}

// DispatchTechnician links a dispatch to a technician. The schedule fields copy the owning
// dispatch's resolved slot so a technician's day can be read from one index.
type DispatchTechnician struct {
	DispatchID      string    `json:"dispatchId" dynamodbav:"dispatchID"`
	TechnicianID    string    `json:"technicianId" dynamodbav:"technicianID"`
	TechnicianName  string    `json:"technicianName,omitempty" dynamodbav:"technicianName,omitempty"`
	TechnicianEmail string    `json:"technicianEmail,omitempty" dynamodbav:"technicianEmail,omitempty"`
	AssignedAt      time.Time `json:"assignedAt" dynamodbav:"assignedAt"`
	ScheduledDate   string    `json:"-" dynamodbav:"scheduledDate"`
	StartTime       string    `json:"-" dynamodbav:"startTime,omitempty"`
	EndTime         string    `json:"-" dynamodbav:"endTime,omitempty"`
}

// CreateDispatchRequest is the body of POST /dispatches/from-job/:jobId
type CreateDispatchRequest struct {
	TechnicianIDs     []string `json:"technicianIds" validate:"omitempty,dive,required"`
	ScheduledDate     string   `json:"scheduledDate" validate:"required,datetime=2006-01-02"`
	StartTime         string   `json:"startTime,omitempty" validate:"omitempty,clock"`
	EndTime           string   `json:"endTime,omitempty" validate:"omitempty,clock"`
	EstimatedDuration *int     `json:"estimatedDuration,omitempty" validate:"omitempty,min=0"`
	Priority          Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes             string   `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateDispatchRequest is a partial update; nil fields are left untouched
type UpdateDispatchRequest struct {
	TechnicianIDs     []string  `json:"technicianIds,omitempty" validate:"omitempty,dive,required"`
	ScheduledDate     *string   `json:"scheduledDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime         *string   `json:"startTime,omitempty" validate:"omitempty,clock"`
	EndTime           *string   `json:"endTime,omitempty" validate:"omitempty,clock"`
	EstimatedDuration *int      `json:"estimatedDuration,omitempty" validate:"omitempty,min=0"`
	Priority          *Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes             *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type UpdateDispatchStatusRequest struct {
	Status DispatchStatus `json:"status" validate:"required,oneof=pending assigned in_progress completed cancelled"`
}

type StartDispatchRequest struct {
	ActualStartTime *time.Time `json:"actualStartTime,omitempty"`
}

type CompleteDispatchRequest struct {
	ActualEndTime        *time.Time `json:"actualEndTime,omitempty"`
	CompletionPercentage *int       `json:"completionPercentage,omitempty"`
}

// DispatchFilter narrows dispatch listing and statistics
type DispatchFilter struct {
	Status         DispatchStatus
	Priority       Priority
	TechnicianID   string
	ServiceOrderID string
	DateFrom       string
	DateTo         string
	PageNumber     int
	PageSize       int
}

// Matches applies the non-technician criteria of the filter to a dispatch
func (f *DispatchFilter) Matches(d *Dispatch) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Priority != "" && d.Priority != f.Priority {
		return false
	}
	if f.ServiceOrderID != "" && d.ServiceOrderID != f.ServiceOrderID {
		return false
	}
	if f.DateFrom != "" && d.ScheduledDate < f.DateFrom {
		return false
	}
	if f.DateTo != "" && d.ScheduledDate > f.DateTo {
		return false
	}
	return true
}

// DispatchStatistics aggregates dispatches matching a filter
type DispatchStatistics struct {
	TotalDispatches int                    `json:"totalDispatches"`
	CountByStatus   map[DispatchStatus]int `json:"countByStatus"`
	CountByPriority map[Priority]int       `json:"countByPriority"`
	CompletionRate  float64                `json:"completionRate"`
	AverageDuration float64                `json:"averageDuration"`
	TechnicianCount int                    `json:"technicianCount"`
}
