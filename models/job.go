package models

import "time"

type JobStatus string

const (
	JobStatusUnscheduled JobStatus = "unscheduled"
	JobStatusUnassigned  JobStatus = "unassigned"
	JobStatusScheduled   JobStatus = "scheduled"
	JobStatusInProgress  JobStatus = "in_progress"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusCancelled   JobStatus = "cancelled"
)

// AwaitsAssignment reports whether the job still needs technicians
func (s JobStatus) AwaitsAssignment() bool {
	return s == JobStatusUnscheduled || s == JobStatusUnassigned
}

// ServiceOrderJob is a unit of requested work waiting to be scheduled
type ServiceOrderJob struct {
	JobID                 string    `json:"id" dynamodbav:"jobID"`
	ServiceOrderID        string    `json:"serviceOrderId,omitempty" dynamodbav:"serviceOrderID,omitempty"`
	Title                 string    `json:"title" dynamodbav:"title"`
	Description           string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	RequiredSkills        []string  `json:"requiredSkills" dynamodbav:"requiredSkills,stringset,omitempty"`
	Priority              Priority  `json:"priority" dynamodbav:"priority"`
	Status                JobStatus `json:"status" dynamodbav:"status"`
	AssignedTechnicianIDs []string  `json:"assignedTechnicianIds" dynamodbav:"assignedTechnicianIDs,omitempty"`
	ScheduledDate         string    `json:"scheduledDate,omitempty" dynamodbav:"scheduledDate,omitempty"`
	ScheduledStartTime    string    `json:"scheduledStartTime,omitempty" dynamodbav:"scheduledStartTime,omitempty"`
	ScheduledEndTime      string    `json:"scheduledEndTime,omitempty" dynamodbav:"scheduledEndTime,omitempty"`
	EstimatedDuration     *int      `json:"estimatedDuration,omitempty" dynamodbav:"estimatedDuration,omitempty"`
	Location              string    `json:"location,omitempty" dynamodbav:"location,omitempty"`
	UpdatedBy             string    `json:"updatedBy,omitempty" dynamodbav:"updatedBy,omitempty"`
	CreatedAt             time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// HasSkills reports whether the job requires every one of the given skills
func (j *ServiceOrderJob) HasSkills(skills []string) bool {
	return containsAll(j.RequiredSkills, skills)
}

// UnassignedJobFilter narrows GET /planning/unassigned-jobs
type UnassignedJobFilter struct {
	Priority       Priority
	Skills         []string
	ServiceOrderID string
	PageNumber     int
	PageSize       int
}

func containsAll(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[normalizeSkill(h)] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[normalizeSkill(w)]; !ok {
			return false
		}
	}
	return true
}
