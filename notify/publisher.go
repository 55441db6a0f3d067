package notify

import (
	"context"
	"time"
)

// Event types published on dispatch and planning changes
const (
	EventDispatchCreated = "dispatch/created"
	EventDispatchStatus  = "dispatch/status"
	EventJobAssigned     = "job/assigned"
)

// Event is the payload of a lifecycle notification
type Event struct {
	Type           string    `json:"type"`
	DispatchID     string    `json:"dispatchId,omitempty"`
	DispatchNumber string    `json:"dispatchNumber,omitempty"`
	JobID          string    `json:"jobId,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	TechnicianIDs  []string  `json:"technicianIds,omitempty"`
	ScheduledDate  string    `json:"scheduledDate,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher delivers lifecycle events. Delivery is best effort; callers log and continue on error.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// NoopPublisher drops every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() {}
