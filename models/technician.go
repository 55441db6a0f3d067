package models

import "time"

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

// TechnicianLeave is an absence period. StartDate and EndDate are inclusive YYYY-MM-DD dates.
type TechnicianLeave struct {
	LeaveID      string      `json:"id" dynamodbav:"leaveID"`
	TechnicianID string      `json:"technicianId" dynamodbav:"technicianID"`
	LeaveType    string      `json:"leaveType,omitempty" dynamodbav:"leaveType,omitempty"`
	StartDate    string      `json:"startDate" dynamodbav:"startDate"`
	EndDate      string      `json:"endDate" dynamodbav:"endDate"`
	Status       LeaveStatus `json:"status" dynamodbav:"status"`
	Reason       string      `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" dynamodbav:"createdAt"`
}

// Covers reports whether an approved leave includes the given date
func (l *TechnicianLeave) Covers(date string) bool {
	return l.Status == LeaveStatusApproved && l.StartDate <= date && date <= l.EndDate
}

// Overlaps reports whether an approved leave intersects the inclusive range [from, to]
func (l *TechnicianLeave) Overlaps(from, to string) bool {
	return l.Status == LeaveStatusApproved && l.StartDate <= to && from <= l.EndDate
}

// TechnicianWorkingHours is a recurring weekday window. DayOfWeek follows time.Weekday (Sunday = 0).
type TechnicianWorkingHours struct {
	TechnicianID string `json:"technicianId" dynamodbav:"technicianID"`
	DayOfWeek    int    `json:"dayOfWeek" dynamodbav:"dayOfWeek"`
	StartTime    string `json:"startTime" dynamodbav:"startTime"`
	EndTime      string `json:"endTime" dynamodbav:"endTime"`
	IsActive     bool   `json:"isActive" dynamodbav:"isActive"`
}

// TechnicianSchedule is the response of GET /planning/technician-schedule/:id
type TechnicianSchedule struct {
	TechnicianID        string                   `json:"technicianId"`
	TechnicianName      string                   `json:"technicianName"`
	StartDate           string                   `json:"startDate"`
	EndDate             string                   `json:"endDate"`
	WorkingHours        []TechnicianWorkingHours `json:"workingHours"`
	Dispatches          []*Dispatch              `json:"dispatches"`
	Leaves              []*TechnicianLeave       `json:"leaves"`
	TotalScheduledHours float64                  `json:"totalScheduledHours"`
	AvailableHours      float64                  `json:"availableHours"`
}

// TechnicianAvailability is one entry of GET /planning/available-technicians
type TechnicianAvailability struct {
	TechnicianID     string   `json:"technicianId"`
	TechnicianName   string   `json:"technicianName"`
	Email            string   `json:"email,omitempty"`
	Skills           []string `json:"skills,omitempty"`
	IsAvailable      bool     `json:"isAvailable"`
	HasConflict      bool     `json:"hasConflict"`
	ScheduledMinutes int      `json:"scheduledMinutes"`
	WorkingMinutes   int      `json:"workingMinutes"`
	AvailableMinutes int      `json:"availableMinutes"`
	DispatchCount    int      `json:"dispatchCount"`
}

// TechnicianSlotLock guards a technician's day while an assignment is validated and persisted
type TechnicianSlotLock struct {
	LockKey      string    `json:"lockKey" dynamodbav:"lockKey"`
	TechnicianID string    `json:"technicianId" dynamodbav:"technicianID"`
	Date         string    `json:"date" dynamodbav:"date"`
	Owner        string    `json:"owner" dynamodbav:"owner"`
	AcquiredAt   time.Time `json:"acquiredAt" dynamodbav:"acquiredAt"`
	ExpiresAt    int64     `json:"expiresAt" dynamodbav:"expiresAt"`
}
