package repository

import (
	"context"
	"dispatch-backend/dal"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"time"
)

const (
	tableJobs = "service_order_jobs"

	indexJobStatus       = "status-index"
	indexJobServiceOrder = "serviceOrderID-index"
)

type JobRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewJobRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *JobRepository) GetJob(ctx context.Context, id string) (*models.ServiceOrderJob, error) {
	if id == "" {
		return nil, errors.New("job id is required")
	}

	var job models.ServiceOrderJob
	found, err := r.db.GetItem(ctx, models.QueryConfig{
		TableName: r.config.TableName(tableJobs),
		KeyName:   "jobID",
		KeyValue:  id,
		KeyType:   models.StringType,
	}, &job)
	if err != nil {
		r.logger.Errorf("Failed to get job %s: %v", id, err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if !found {
		return nil, models.NewNotFoundError("job", id)
	}
	return &job, nil
}

// SaveJob overwrites the job row and stamps UpdatedAt
func (r *JobRepository) SaveJob(ctx context.Context, job *models.ServiceOrderJob) error {
	job.UpdatedAt = time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}

	if err := r.db.PutItem(ctx, r.config.TableName(tableJobs), job); err != nil {
		r.logger.Errorf("Failed to save job %s: %v", job.JobID, err)
		return fmt.Errorf("failed to save job: %w", err)
	}
	r.logger.Debugf("Job saved: %s (status=%s)", job.JobID, job.Status)
	return nil
}

// ListJobsByStatus reads every job in one of the given statuses
func (r *JobRepository) ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]*models.ServiceOrderJob, error) {
	var all []*models.ServiceOrderJob
	for _, status := range statuses {
		var jobs []*models.ServiceOrderJob
		err := r.db.QueryByIndex(ctx, r.config.TableName(tableJobs), indexJobStatus, "status", string(status), &jobs)
		if err != nil {
			r.logger.Errorf("Failed to list jobs with status %s: %v", status, err)
			return nil, fmt.Errorf("failed to list jobs: %w", err)
		}
		all = append(all, jobs...)
	}
	return all, nil
}

func (r *JobRepository) ListJobsByServiceOrder(ctx context.Context, serviceOrderID string) ([]*models.ServiceOrderJob, error) {
	var jobs []*models.ServiceOrderJob
	err := r.db.QueryByIndex(ctx, r.config.TableName(tableJobs), indexJobServiceOrder, "serviceOrderID", serviceOrderID, &jobs)
	if err != nil {
		r.logger.Errorf("Failed to list jobs of service order %s: %v", serviceOrderID, err)
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
