package services

import (
	"context"
	"dispatch-backend/metrics"
	"dispatch-backend/models"
	"dispatch-backend/notify"
	"dispatch-backend/repository"
	"dispatch-backend/utils"
	"dispatch-backend/utils/logger"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// MaxScheduleDays bounds the range of a technician schedule query
	MaxScheduleDays = 92

	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 5 * time.Second

	lockRetryMin = 25 * time.Millisecond
	lockRetryMax = 400 * time.Millisecond
)

// errSlotBusy means another request still holds a technician-day lock
var errSlotBusy = errors.New("technician slot locked by another assignment")

type PlanningService struct {
	validator       *AssignmentValidator
	dispatchService DispatchServiceInterface
	jobRepo         repository.JobRepositoryInterface
	technicianRepo  repository.TechnicianRepositoryInterface
	dispatchRepo    repository.DispatchRepositoryInterface
	lockRepo        repository.LockRepositoryInterface
	publisher       notify.Publisher
	metrics         metrics.Recorder
	logger          logger.Logger
	lockTTL         time.Duration
	lockWait        time.Duration
	now             func() time.Time
}

func NewPlanningService(
	repoContainer repository.RepositoryContainerInterface,
	dispatchService DispatchServiceInterface,
	publisher notify.Publisher,
	recorder metrics.Recorder,
	logger logger.Logger,
	config *models.Config,
) *PlanningService {
	s := &PlanningService{
		validator:       NewAssignmentValidator(repoContainer, logger),
		dispatchService: dispatchService,
		jobRepo:         repoContainer.GetJobRepository(),
		technicianRepo:  repoContainer.GetTechnicianRepository(),
		dispatchRepo:    repoContainer.GetDispatchRepository(),
		lockRepo:        repoContainer.GetLockRepository(),
		publisher:       publisher,
		metrics:         recorder,
		logger:          logger,
		lockTTL:         config.LockTTL,
		lockWait:        config.LockWait,
		now:             func() time.Time { return time.Now().UTC() },
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultLockTTL
	}
	if s.lockWait <= 0 {
		s.lockWait = defaultLockWait
	}
	return s
}

// ValidateAssignment runs the validator without locking or writing anything
func (s *PlanningService) ValidateAssignment(ctx context.Context, req *models.ValidateAssignmentRequest) (*models.ValidationResult, error) {
	return s.validator.Validate(ctx, req)
}

// AssignJob schedules a job for a set of technicians. The technician-day slots are locked for the
// whole validate-then-write sequence so two overlapping requests cannot both pass validation.
// A failed dispatch creation leaves the job assigned and is reported as a warning.
func (s *PlanningService) AssignJob(ctx context.Context, req *models.AssignJobRequest, actor string) (*models.AssignmentResult, error) {
	if req == nil {
		return nil, models.NewValidationError("", "assignment request is required")
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}
	if _, err := models.ParseDate(req.ScheduledDate); err != nil {
		return nil, models.NewValidationError("scheduledDate", err.Error())
	}
	if _, err := models.NewTimeWindow(req.StartTime, req.EndTime); err != nil {
		return nil, models.NewValidationError("endTime", err.Error())
	}
	technicianIDs := distinctIDs(req.TechnicianIDs)
	if len(technicianIDs) == 0 {
		return nil, models.NewValidationError("technicianIds", "at least one technician is required")
	}

	owner := utils.GenerateUUID()
	release, err := s.lockSlots(ctx, technicianIDs, req.ScheduledDate, owner)
	if err != nil {
		var conflict *models.ConflictError
		if errors.As(err, &conflict) {
			s.metrics.RecordAssignment(metrics.OutcomeConflict)
			s.metrics.RecordConflicts(conflict.Conflicts)
		} else {
			s.metrics.RecordAssignment(metrics.OutcomeError)
		}
		return nil, err
	}
	defer release()

	validation := req.ToValidation()
	validation.TechnicianIDs = technicianIDs
	result, err := s.validator.Validate(ctx, &validation)
	if err != nil {
		s.metrics.RecordAssignment(metrics.OutcomeError)
		return nil, err
	}
	if !result.IsValid {
		s.metrics.RecordAssignment(metrics.OutcomeConflict)
		s.metrics.RecordConflicts(result.Conflicts)
		s.logger.Warnf("AssignJob %s rejected with %d conflict(s)", req.JobID, len(result.Conflicts))
		return nil, &models.ConflictError{Conflicts: result.Conflicts}
	}

	job, err := s.jobRepo.GetJob(ctx, req.JobID)
	if err != nil {
		s.metrics.RecordAssignment(metrics.OutcomeError)
		return nil, err
	}
	job.AssignedTechnicianIDs = technicianIDs
	job.ScheduledDate = req.ScheduledDate
	job.ScheduledStartTime = req.StartTime
	job.ScheduledEndTime = req.EndTime
	job.Status = models.JobStatusScheduled
	if req.Priority != "" {
		job.Priority = req.Priority
	}
	job.UpdatedBy = actor

	if err := s.jobRepo.SaveJob(ctx, job); err != nil {
		s.logger.Errorf("AssignJob %s: saving job: %v", req.JobID, err)
		s.metrics.RecordAssignment(metrics.OutcomeError)
		return nil, err
	}
	s.logger.Infof("Job %s assigned to %v on %s %s-%s by %s", job.JobID, technicianIDs, req.ScheduledDate, req.StartTime, req.EndTime, actor)

	assignment := &models.AssignmentResult{Job: job}
	if req.AutoCreateDispatch {
		dispatch, err := s.dispatchService.CreateFromJob(ctx, job.JobID, &models.CreateDispatchRequest{
			TechnicianIDs: technicianIDs,
			ScheduledDate: req.ScheduledDate,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Priority:      job.Priority,
			Notes:         req.Notes,
		}, actor)
		if err != nil {
			s.logger.Errorf("AssignJob %s: job assigned but dispatch creation failed: %v", job.JobID, err)
			s.metrics.RecordDispatchCreationFailure()
			assignment.Warning = &models.DispatchCreationWarning{
				Message: fmt.Sprintf("job assigned but dispatch could not be created: %v", err),
			}
		} else {
			assignment.Dispatch = dispatch
		}
	}

	s.metrics.RecordAssignment(metrics.OutcomeSuccess)
	event := notify.Event{
		Type:          notify.EventJobAssigned,
		JobID:         job.JobID,
		TechnicianIDs: technicianIDs,
		ScheduledDate: req.ScheduledDate,
		Actor:         actor,
		OccurredAt:    s.now(),
	}
	if assignment.Dispatch != nil {
		event.DispatchID = assignment.Dispatch.ID
		event.DispatchNumber = assignment.Dispatch.DispatchNumber
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warnf("Failed to publish %s for job %s: %v", event.Type, job.JobID, err)
	}
	return assignment, nil
}

// BatchAssign runs AssignJob for each entry in order. A failed entry never stops the batch.
func (s *PlanningService) BatchAssign(ctx context.Context, req *models.BatchAssignRequest, actor string) (*models.BatchAssignResult, error) {
	if req == nil || len(req.Assignments) == 0 {
		return nil, models.NewValidationError("assignments", "at least one assignment is required")
	}

	out := &models.BatchAssignResult{Results: make([]models.BatchAssignItemResult, 0, len(req.Assignments))}
	for i := range req.Assignments {
		item := req.Assignments[i]
		item.AutoCreateDispatch = item.AutoCreateDispatch || req.AutoCreateDispatches

		res := models.BatchAssignItemResult{JobID: item.JobID}
		assigned, err := s.AssignJob(ctx, &item, actor)
		if err != nil {
			res.Status = models.BatchItemFailed
			res.Error = err.Error()
			var conflict *models.ConflictError
			if errors.As(err, &conflict) {
				res.Conflicts = conflict.Conflicts
			}
			out.Failed++
		} else {
			res.Status = models.BatchItemSuccess
			res.Warning = assigned.Warning
			if assigned.Dispatch != nil {
				res.DispatchID = assigned.Dispatch.ID
			}
			out.Successful++
		}
		out.Results = append(out.Results, res)
	}

	s.logger.Infof("Batch assignment by %s: %d succeeded, %d failed", actor, out.Successful, out.Failed)
	return out, nil
}

// GetUnassignedJobs pages jobs still waiting for technicians, most urgent and oldest first
func (s *PlanningService) GetUnassignedJobs(ctx context.Context, filter *models.UnassignedJobFilter) (*models.PagedResult[*models.ServiceOrderJob], error) {
	if filter == nil {
		filter = &models.UnassignedJobFilter{}
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", filter.Priority))
	}

	var (
		jobs []*models.ServiceOrderJob
		err  error
	)
	if filter.ServiceOrderID != "" {
		jobs, err = s.jobRepo.ListJobsByServiceOrder(ctx, filter.ServiceOrderID)
	} else {
		jobs, err = s.jobRepo.ListJobsByStatus(ctx, models.JobStatusUnscheduled, models.JobStatusUnassigned)
	}
	if err != nil {
		s.logger.Errorf("GetUnassignedJobs: %v", err)
		return nil, err
	}

	matched := make([]*models.ServiceOrderJob, 0, len(jobs))
	for _, job := range jobs {
		if !job.Status.AwaitsAssignment() {
			continue
		}
		if filter.Priority != "" && job.Priority != filter.Priority {
			continue
		}
		if !job.HasSkills(filter.Skills) {
			continue
		}
		matched = append(matched, job)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if ri, rj := matched[i].Priority.Rank(), matched[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	page := models.Paginate(matched, filter.PageNumber, filter.PageSize)
	return &page, nil
}

// GetTechnicianSchedule merges working hours, dispatches and approved leaves over an inclusive range
func (s *PlanningService) GetTechnicianSchedule(ctx context.Context, technicianID, startDate, endDate string) (*models.TechnicianSchedule, error) {
	from, err := models.ParseDate(startDate)
	if err != nil {
		return nil, models.NewValidationError("startDate", err.Error())
	}
	to, err := models.ParseDate(endDate)
	if err != nil {
		return nil, models.NewValidationError("endDate", err.Error())
	}
	if to.Before(from) {
		return nil, models.NewValidationError("endDate", "must not be before startDate")
	}
	if int(to.Sub(from).Hours()/24)+1 > MaxScheduleDays {
		return nil, models.NewValidationError("endDate", fmt.Sprintf("range must not exceed %d days", MaxScheduleDays))
	}

	user, err := s.technicianRepo.GetUser(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if !user.IsTechnician() {
		return nil, models.NewNotFoundError("technician", technicianID)
	}

	hours, err := s.technicianRepo.GetWorkingHours(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	dispatches, err := s.dispatchRepo.GetDispatchesForTechnician(ctx, technicianID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	leaves, err := s.technicianRepo.GetLeaves(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	schedule := &models.TechnicianSchedule{
		TechnicianID:   technicianID,
		TechnicianName: user.FullName(),
		StartDate:      startDate,
		EndDate:        endDate,
		WorkingHours:   hours,
		Dispatches:     make([]*models.Dispatch, 0, len(dispatches)),
		Leaves:         make([]*models.TechnicianLeave, 0),
	}

	scheduledMinutes := 0
	for _, d := range dispatches {
		if d.IsDeleted || d.Status == models.DispatchStatusCancelled {
			continue
		}
		schedule.Dispatches = append(schedule.Dispatches, d)
		scheduledMinutes += d.Window().Minutes()
	}
	sort.SliceStable(schedule.Dispatches, func(i, j int) bool {
		a, b := schedule.Dispatches[i], schedule.Dispatches[j]
		if a.ScheduledDate != b.ScheduledDate {
			return a.ScheduledDate < b.ScheduledDate
		}
		return a.Window().Start < b.Window().Start
	})

	for _, l := range leaves {
		if l.Overlaps(startDate, endDate) {
			schedule.Leaves = append(schedule.Leaves, l)
		}
	}

	workingMinutes := 0
	for _, day := range models.DatesBetween(from, to) {
		workingMinutes += WorkingWindow(hours, day.Weekday()).Minutes()
	}

	schedule.TotalScheduledHours = minutesToHours(scheduledMinutes)
	schedule.AvailableHours = minutesToHours(max(workingMinutes-scheduledMinutes, 0))
	return schedule, nil
}

// GetAvailableTechnicians rates every technician with the requested skills for one slot. Technicians on
// approved leave that day are left out.
func (s *PlanningService) GetAvailableTechnicians(ctx context.Context, date, startTime, endTime string, skills []string) ([]models.TechnicianAvailability, error) {
	day, err := models.ParseDate(date)
	if err != nil {
		return nil, models.NewValidationError("date", err.Error())
	}
	requested, err := models.NewTimeWindow(startTime, endTime)
	if err != nil {
		return nil, models.NewValidationError("endTime", err.Error())
	}

	technicians, err := s.technicianRepo.ListTechnicians(ctx)
	if err != nil {
		s.logger.Errorf("GetAvailableTechnicians: %v", err)
		return nil, err
	}

	result := make([]models.TechnicianAvailability, 0, len(technicians))
	for _, tech := range technicians {
		if tech.Status == models.UserStatusInactive || !tech.HasSkills(skills) {
			continue
		}

		leaves, err := s.technicianRepo.GetLeaves(ctx, tech.ID)
		if err != nil {
			return nil, err
		}
		if onLeave(leaves, date) {
			continue
		}

		hours, err := s.technicianRepo.GetWorkingHours(ctx, tech.ID)
		if err != nil {
			return nil, err
		}
		dispatches, err := s.dispatchRepo.GetDispatchesForTechnician(ctx, tech.ID, date, date)
		if err != nil {
			return nil, err
		}

		entry := models.TechnicianAvailability{
			TechnicianID:   tech.ID,
			TechnicianName: tech.FullName(),
			Email:          tech.Email,
			Skills:         tech.Skills,
			WorkingMinutes: WorkingWindow(hours, day.Weekday()).Minutes(),
		}
		for _, d := range dispatches {
			if d.IsDeleted || !d.Status.BlocksSchedule() {
				continue
			}
			w := d.Window()
			entry.DispatchCount++
			entry.ScheduledMinutes += w.Minutes()
			if requested.Overlaps(w) {
				entry.HasConflict = true
			}
		}
		entry.AvailableMinutes = max(entry.WorkingMinutes-entry.ScheduledMinutes, 0)
		entry.IsAvailable = entry.AvailableMinutes >= requested.Minutes()
		result = append(result, entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.IsAvailable != b.IsAvailable {
			return a.IsAvailable
		}
		if a.ScheduledMinutes != b.ScheduledMinutes {
			return a.ScheduledMinutes < b.ScheduledMinutes
		}
		return a.TechnicianID < b.TechnicianID
	})
	return result, nil
}

// lockSlots takes one lock per technician for the date, in sorted order. The returned func releases
// every lock taken.
func (s *PlanningService) lockSlots(ctx context.Context, technicianIDs []string, date, owner string) (func(), error) {
	ids := append([]string(nil), technicianIDs...)
	sort.Strings(ids)

	var held []string
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for _, id := range held {
			if err := s.lockRepo.Release(releaseCtx, id, date, owner); err != nil {
				s.logger.Warnf("Failed to release slot lock %s: %v", repository.LockKey(id, date), err)
			}
		}
	}

	deadline := time.Now().Add(s.lockWait)
	for _, id := range ids {
		if err := s.acquire(ctx, id, date, owner, deadline); err != nil {
			release()
			if errors.Is(err, errSlotBusy) {
				s.logger.Warnf("Slot %s is held by another assignment", repository.LockKey(id, date))
				return nil, &models.ConflictError{Conflicts: []models.AssignmentConflict{{
					Type:         models.ConflictAssignmentInProgress,
					TechnicianID: id,
					Message:      fmt.Sprintf("another assignment for technician %s on %s is in progress", id, date),
				}}}
			}
			s.logger.Errorf("Failed to lock slot %s: %v", repository.LockKey(id, date), err)
			return nil, err
		}
		held = append(held, id)
	}
	return release, nil
}

func (s *PlanningService) acquire(ctx context.Context, technicianID, date, owner string, deadline time.Time) error {
	delay := lockRetryMin
	for {
		ok, err := s.lockRepo.Acquire(ctx, technicianID, date, owner, s.lockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().Add(delay).After(deadline) {
			return errSlotBusy
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, lockRetryMax)
	}
}

// WorkingWindow returns the technician's window for a weekday. Without a row the default window
// applies; an inactive row means no working time.
func WorkingWindow(hours []models.TechnicianWorkingHours, day time.Weekday) models.TimeWindow {
	for i := range hours {
		if hours[i].DayOfWeek == int(day) {
			return hours[i].Window()
		}
	}
	return models.DefaultWorkingWindow
}

func onLeave(leaves []*models.TechnicianLeave, date string) bool {
	for _, l := range leaves {
		if l.Covers(date) {
			return true
		}
	}
	return false
}

func minutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
