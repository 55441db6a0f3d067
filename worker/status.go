package worker

import (
	"dispatch-backend/models"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Health values reported in ExecutionResult.HealthStatus
const (
	HealthHealthy      = "healthy"
	HealthUnhealthy    = "unhealthy"
	HealthProvisioning = "provisioning"
)

// StatusManager holds the worker's execution result and mirrors it to a status file
type StatusManager struct {
	mu             sync.RWMutex
	statusFilePath string
	result         models.ExecutionResult
}

// NewStatusManager creates a status manager. An empty path keeps the status in memory only.
func NewStatusManager(statusPath, environment string) *StatusManager {
	return &StatusManager{
		statusFilePath: statusPath,
		result: models.ExecutionResult{
			Status:        models.StatusIdle,
			Environment:   environment,
			TablesCreated: make([]models.TableStatus, 0),
		},
	}
}

// Snapshot returns a copy of the current result
func (sm *StatusManager) Snapshot() models.ExecutionResult {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := sm.result
	out.TablesCreated = append([]models.TableStatus(nil), sm.result.TablesCreated...)
	return out
}

// IsSetupCompleted reports whether table provisioning finished successfully
func (sm *StatusManager) IsSetupCompleted() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.result.Status == models.StatusCompleted && sm.result.Success
}

func (sm *StatusManager) MarkStarted(status models.WorkerStatus) error {
	return sm.update(func(r *models.ExecutionResult) {
		r.Status = status
		r.Success = false
		r.StartTime = time.Now()
		r.EndTime = nil
		r.Duration = 0
		r.ErrorMessage = ""
		r.TablesCreated = make([]models.TableStatus, 0)
		r.HealthStatus = HealthProvisioning
	})
}

func (sm *StatusManager) AddTable(table models.TableStatus) error {
	return sm.update(func(r *models.ExecutionResult) {
		r.TablesCreated = append(r.TablesCreated, table)
	})
}

func (sm *StatusManager) IncrementRetry() error {
	return sm.update(func(r *models.ExecutionResult) {
		r.RetryCount++
	})
}

func (sm *StatusManager) MarkCompleted() error {
	return sm.update(func(r *models.ExecutionResult) {
		r.Status = models.StatusCompleted
		r.Success = true
		r.HealthStatus = HealthHealthy
		finish(r)
	})
}

func (sm *StatusManager) MarkFailed(message string) error {
	return sm.update(func(r *models.ExecutionResult) {
		r.Status = models.StatusFailed
		r.Success = false
		r.ErrorMessage = message
		r.HealthStatus = HealthUnhealthy
		finish(r)
	})
}

// RecordSweep stores the outcome of an expired-lock sweep
func (sm *StatusManager) RecordSweep(removed int, at time.Time) error {
	return sm.update(func(r *models.ExecutionResult) {
		r.LastSweepAt = &at
		r.LocksSwept += removed
	})
}

// RecordHealth stores the outcome of a table health check. A failed check on a completed setup
// degrades the worker; a passing one restores it.
func (sm *StatusManager) RecordHealth(err error, at time.Time) error {
	return sm.update(func(r *models.ExecutionResult) {
		r.LastHealthCheckAt = &at
		if err != nil {
			r.HealthStatus = HealthUnhealthy
			r.ErrorMessage = err.Error()
			if r.Status == models.StatusCompleted {
				r.Status = models.StatusDegraded
			}
			return
		}
		r.HealthStatus = HealthHealthy
		if r.Status == models.StatusDegraded {
			r.Status = models.StatusCompleted
			r.ErrorMessage = ""
		}
	})
}

func finish(r *models.ExecutionResult) {
	now := time.Now()
	r.EndTime = &now
	if !r.StartTime.IsZero() {
		r.Duration = now.Sub(r.StartTime)
	}
}

func (sm *StatusManager) update(fn func(*models.ExecutionResult)) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	fn(&sm.result)
	return sm.save()
}

// save writes the status file atomically. Caller holds the lock.
func (sm *StatusManager) save() error {
	if sm.statusFilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(sm.statusFilePath), 0o755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	data, err := json.MarshalIndent(sm.result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	tempFile := sm.statusFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp status file: %w", err)
	}
	if err := os.Rename(tempFile, sm.statusFilePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

// LoadStatus reads a status file written by a worker, possibly in another process
func LoadStatus(path string) (*models.ExecutionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var result models.ExecutionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &result, nil
}
