package models

import (
	"time"
)

// WorkerConfig configures the background maintenance worker
type WorkerConfig struct {
	// Schedule of the expired-lock sweep (6 fields, seconds first)
	SweepSchedule string `json:"sweep_schedule"`
	// Schedule of the table health check
	HealthSchedule string `json:"health_schedule"`

	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	Environment    string   `json:"environment"`
	RequiredTables []string `json:"required_tables"`

	SkipSetup bool `json:"skip_setup"`
}

type WorkerStatus string

const (
	StatusIdle           WorkerStatus = "idle"
	StatusRunning        WorkerStatus = "running"
	StatusCreatingTables WorkerStatus = "creating_tables"
	StatusCompleted      WorkerStatus = "completed"
	StatusFailed         WorkerStatus = "failed"
	StatusDegraded       WorkerStatus = "degraded"
)

// ExecutionResult is the worker's current view of storage provisioning and maintenance
type ExecutionResult struct {
	Success   bool          `json:"success"`
	Status    WorkerStatus  `json:"status"`
	StartTime time.Time     `json:"start_time"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Duration  time.Duration `json:"duration"`

	TablesCreated []TableStatus `json:"tables_created"`

	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count"`

	LastSweepAt       *time.Time `json:"last_sweep_at,omitempty"`
	LocksSwept        int        `json:"locks_swept"`
	LastHealthCheckAt *time.Time `json:"last_health_check_at,omitempty"`
	HealthStatus      string     `json:"health_status,omitempty"` // healthy, unhealthy, provisioning

	Environment string `json:"environment"`
}

// TableStatus records the provisioning outcome of one table
type TableStatus struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"` // CREATING, ACTIVE, EXISTS, FAILED
	CreatedAt  time.Time `json:"created_at"`
	IndexCount int       `json:"index_count"`
}

// TableInfo describes a table the worker must provision
type TableInfo struct {
	Name       string            `json:"name"`
	BaseName   string            `json:"base_name"`
	IndexCount int               `json:"index_count"`
	Tags       map[string]string `json:"tags"`
}

// InfrastructureStatus is the response of GET /infrastructure/status
type InfrastructureStatus struct {
	WorkerRunning bool             `json:"workerRunning"`
	Execution     *ExecutionResult `json:"execution"`
	Healthy       bool             `json:"healthy"`
	Message       string           `json:"message,omitempty"`
}
