package services

import (
	"context"
	"dispatch-backend/metrics"
	"dispatch-backend/models"
	"dispatch-backend/notify"
	"dispatch-backend/repository"
	"dispatch-backend/utils"
	"dispatch-backend/utils/logger"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

type DispatchService struct {
	dispatchRepo   repository.DispatchRepositoryInterface
	itemRepo       repository.DispatchItemRepositoryInterface
	jobRepo        repository.JobRepositoryInterface
	technicianRepo repository.TechnicianRepositoryInterface
	publisher      notify.Publisher
	metrics        metrics.Recorder
	logger         logger.Logger
	now            func() time.Time
}

func NewDispatchService(
	repoContainer repository.RepositoryContainerInterface,
	publisher notify.Publisher,
	recorder metrics.Recorder,
	logger logger.Logger,
) *DispatchService {
	return &DispatchService{
		dispatchRepo:   repoContainer.GetDispatchRepository(),
		itemRepo:       repoContainer.GetDispatchItemRepository(),
		jobRepo:        repoContainer.GetJobRepository(),
		technicianRepo: repoContainer.GetTechnicianRepository(),
		publisher:      publisher,
		metrics:        recorder,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateFromJob creates a pending dispatch for an existing job. Technicians are not validated here.
func (s *DispatchService) CreateFromJob(ctx context.Context, jobID string, req *models.CreateDispatchRequest, actor string) (*models.Dispatch, error) {
	if req == nil {
		return nil, models.NewValidationError("", "dispatch request is required")
	}
	if _, err := models.ParseDate(req.ScheduledDate); err != nil {
		return nil, models.NewValidationError("scheduledDate", err.Error())
	}
	if err := validateSlot(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}

	job, err := s.jobRepo.GetJob(ctx, jobID)
	if err != nil {
		s.logger.Errorf("CreateFromJob: job %s: %v", jobID, err)
		return nil, fmt.Errorf("create dispatch from job %s: %w", jobID, err)
	}

	now := s.now()
	priority := req.Priority
	if priority == "" {
		priority = job.Priority
	}
	if !priority.IsValid() {
		priority = models.PriorityMedium
	}

	dispatch := &models.Dispatch{
		ID:                utils.GenerateUUID(),
		JobID:             job.JobID,
		ServiceOrderID:    job.ServiceOrderID,
		Status:            models.DispatchStatusPending,
		Priority:          priority,
		ScheduledDate:     req.ScheduledDate,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		EstimatedDuration: req.EstimatedDuration,
		Notes:             req.Notes,
		CreatedBy:         actor,
		UpdatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if dispatch.EstimatedDuration == nil {
		dispatch.EstimatedDuration = job.EstimatedDuration
	}
	dispatch.DispatchNumber = dispatchNumber(dispatch.ID, now)
	dispatch.Technicians = s.technicianRows(ctx, dispatch, distinctIDs(req.TechnicianIDs), nil)

	if err := s.dispatchRepo.CreateDispatch(ctx, dispatch); err != nil {
		s.logger.Errorf("CreateFromJob: persisting dispatch for job %s: %v", jobID, err)
		return nil, err
	}

	s.logger.Infof("Dispatch %s (%s) created from job %s by %s", dispatch.DispatchNumber, dispatch.ID, jobID, actor)
	s.publish(ctx, notify.Event{
		Type:           notify.EventDispatchCreated,
		DispatchID:     dispatch.ID,
		DispatchNumber: dispatch.DispatchNumber,
		JobID:          dispatch.JobID,
		Status:         string(dispatch.Status),
		TechnicianIDs:  dispatch.TechnicianIDs(),
		ScheduledDate:  dispatch.ScheduledDate,
		Actor:          actor,
	})
	return dispatch, nil
}

// UpdateDispatch applies a partial update. A supplied technician list replaces the assignment set.
func (s *DispatchService) UpdateDispatch(ctx context.Context, id string, req *models.UpdateDispatchRequest, actor string) (*models.Dispatch, error) {
	if req == nil {
		return nil, models.NewValidationError("", "update request is required")
	}

	dispatch, err := s.loadActive(ctx, id, "update")
	if err != nil {
		return nil, err
	}

	scheduleChanged := false
	if req.ScheduledDate != nil && *req.ScheduledDate != dispatch.ScheduledDate {
		if _, err := models.ParseDate(*req.ScheduledDate); err != nil {
			return nil, models.NewValidationError("scheduledDate", err.Error())
		}
		dispatch.ScheduledDate = *req.ScheduledDate
		scheduleChanged = true
	}
	if req.StartTime != nil && *req.StartTime != dispatch.StartTime {
		dispatch.StartTime = *req.StartTime
		scheduleChanged = true
	}
	if req.EndTime != nil && *req.EndTime != dispatch.EndTime {
		dispatch.EndTime = *req.EndTime
		scheduleChanged = true
	}
	if req.EstimatedDuration != nil {
		dispatch.EstimatedDuration = req.EstimatedDuration
		scheduleChanged = true
	}
	if err := validateSlot(dispatch.StartTime, dispatch.EndTime); err != nil {
		return nil, err
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", *req.Priority))
		}
		dispatch.Priority = *req.Priority
	}
	if req.Notes != nil {
		dispatch.Notes = *req.Notes
	}

	dispatch.UpdatedBy = actor
	dispatch.UpdatedAt = s.now()

	switch {
	case req.TechnicianIDs != nil:
		previous := dispatch.Technicians
		dispatch.Technicians = s.technicianRows(ctx, dispatch, distinctIDs(req.TechnicianIDs), previous)
		err = s.dispatchRepo.ReplaceTechnicians(ctx, dispatch, previous)
	case scheduleChanged:
		previous := dispatch.Technicians
		dispatch.Technicians = s.technicianRows(ctx, dispatch, dispatch.TechnicianIDs(), previous)
		err = s.dispatchRepo.ReplaceTechnicians(ctx, dispatch, previous)
	default:
		err = s.dispatchRepo.SaveDispatch(ctx, dispatch)
	}
	if err != nil {
		s.logger.Errorf("UpdateDispatch %s: %v", id, err)
		return nil, err
	}

	s.logger.Infof("Dispatch %s updated by %s", id, actor)
	return dispatch, nil
}

// UpdateStatus moves a dispatch along the transition table. Requesting the current status only
// refreshes UpdatedAt.
func (s *DispatchService) UpdateStatus(ctx context.Context, id string, status models.DispatchStatus, actor string) (*models.Dispatch, error) {
	if !status.IsValid() {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}

	dispatch, err := s.loadActive(ctx, id, "update status of")
	if err != nil {
		return nil, err
	}

	from := dispatch.Status
	now := s.now()
	if from == status {
		dispatch.UpdatedBy = actor
		dispatch.UpdatedAt = now
		if err := s.dispatchRepo.SaveDispatch(ctx, dispatch); err != nil {
			return nil, err
		}
		return dispatch, nil
	}

	if !from.CanTransitionTo(status) {
		err := &models.TransitionError{From: from, To: status}
		s.logger.Warnf("UpdateStatus %s rejected: %v", id, err)
		return nil, err
	}

	applyTransition(dispatch, status, now)
	dispatch.UpdatedBy = actor
	dispatch.UpdatedAt = now

	if err := s.dispatchRepo.SaveDispatch(ctx, dispatch); err != nil {
		s.logger.Errorf("UpdateStatus %s (%s -> %s): %v", id, from, status, err)
		return nil, err
	}

	s.recordTransition(ctx, dispatch, from, actor)
	return dispatch, nil
}

// StartDispatch moves a pending or assigned dispatch to in_progress
func (s *DispatchService) StartDispatch(ctx context.Context, id string, actualStartTime *time.Time, actor string) (*models.Dispatch, error) {
	dispatch, err := s.loadActive(ctx, id, "start")
	if err != nil {
		return nil, err
	}

	from := dispatch.Status
	if from != models.DispatchStatusPending && from != models.DispatchStatusAssigned {
		err := &models.StateError{
			Operation: "start",
			Current:   from,
			Allowed:   []models.DispatchStatus{models.DispatchStatusPending, models.DispatchStatusAssigned},
		}
		s.logger.Warnf("StartDispatch %s rejected: %v", id, err)
		return nil, err
	}

	now := s.now()
	started := now
	if actualStartTime != nil && !actualStartTime.IsZero() {
		started = actualStartTime.UTC()
	}
	dispatch.Status = models.DispatchStatusInProgress
	dispatch.ActualStartTime = &started
	dispatch.UpdatedBy = actor
	dispatch.UpdatedAt = now

	if err := s.dispatchRepo.SaveDispatch(ctx, dispatch); err != nil {
		s.logger.Errorf("StartDispatch %s: %v", id, err)
		return nil, err
	}

	s.recordTransition(ctx, dispatch, from, actor)
	return dispatch, nil
}

// CompleteDispatch finishes an in_progress dispatch. The completion percentage defaults to 100.
func (s *DispatchService) CompleteDispatch(ctx context.Context, id string, req *models.CompleteDispatchRequest, actor string) (*models.Dispatch, error) {
	if req == nil {
		req = &models.CompleteDispatchRequest{}
	}
	percentage := 100
	if req.CompletionPercentage != nil {
		percentage = *req.CompletionPercentage
	}
	if percentage < 0 || percentage > 100 {
		return nil, models.NewValidationError("completionPercentage", "must be between 0 and 100")
	}

	dispatch, err := s.loadActive(ctx, id, "complete")
	if err != nil {
		return nil, err
	}

	from := dispatch.Status
	if from != models.DispatchStatusInProgress {
		err := &models.StateError{
			Operation: "complete",
			Current:   from,
			Allowed:   []models.DispatchStatus{models.DispatchStatusInProgress},
		}
		s.logger.Warnf("CompleteDispatch %s rejected: %v", id, err)
		return nil, err
	}

	now := s.now()
	ended := now
	if req.ActualEndTime != nil && !req.ActualEndTime.IsZero() {
		ended = req.ActualEndTime.UTC()
	}
	if dispatch.ActualStartTime != nil && ended.Before(*dispatch.ActualStartTime) {
		return nil, models.NewValidationError("actualEndTime", "must not be before the actual start time")
	}

	dispatch.Status = models.DispatchStatusCompleted
	dispatch.ActualEndTime = &ended
	dispatch.CompletionPercentage = percentage
	dispatch.ActualDuration = actualDuration(dispatch)
	dispatch.UpdatedBy = actor
	dispatch.UpdatedAt = now

	if err := s.dispatchRepo.SaveDispatch(ctx, dispatch); err != nil {
		s.logger.Errorf("CompleteDispatch %s: %v", id, err)
		return nil, err
	}

	s.recordTransition(ctx, dispatch, from, actor)
	return dispatch, nil
}

// DeleteDispatch soft-deletes a pending or cancelled dispatch
func (s *DispatchService) DeleteDispatch(ctx context.Context, id string, actor string) error {
	dispatch, err := s.loadActive(ctx, id, "delete")
	if err != nil {
		return err
	}

	if dispatch.Status != models.DispatchStatusPending && dispatch.Status != models.DispatchStatusCancelled {
		err := &models.StateError{
			Operation: "delete",
			Current:   dispatch.Status,
			Allowed:   []models.DispatchStatus{models.DispatchStatusPending, models.DispatchStatusCancelled},
		}
		s.logger.Warnf("DeleteDispatch %s rejected: %v", id, err)
		return err
	}

	now := s.now()
	dispatch.IsDeleted = true
	dispatch.DeletedAt = &now
	dispatch.DeletedBy = actor
	dispatch.UpdatedBy = actor
	dispatch.UpdatedAt = now

	if err := s.dispatchRepo.SaveDispatch(ctx, dispatch); err != nil {
		s.logger.Errorf("DeleteDispatch %s: %v", id, err)
		return err
	}
	s.logger.Infof("Dispatch %s deleted by %s", id, actor)
	return nil
}

// GetDispatch returns a dispatch with its technicians and every attached record
func (s *DispatchService) GetDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	dispatch, err := s.loadActive(ctx, id, "get")
	if err != nil {
		return nil, err
	}

	if dispatch.TimeEntries, err = s.itemRepo.ListTimeEntries(ctx, id); err != nil {
		return nil, err
	}
	if dispatch.Expenses, err = s.itemRepo.ListExpenses(ctx, id); err != nil {
		return nil, err
	}
	if dispatch.Materials, err = s.itemRepo.ListMaterials(ctx, id); err != nil {
		return nil, err
	}
	if dispatch.Attachments, err = s.itemRepo.ListAttachments(ctx, id); err != nil {
		return nil, err
	}
	if dispatch.DispatchNotes, err = s.itemRepo.ListNotes(ctx, id); err != nil {
		return nil, err
	}
	return dispatch, nil
}

// ListDispatches returns one page of dispatches, newest scheduled date first
func (s *DispatchService) ListDispatches(ctx context.Context, filter *models.DispatchFilter) (*models.PagedResult[*models.Dispatch], error) {
	if filter == nil {
		filter = &models.DispatchFilter{}
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	dispatches, err := s.dispatchRepo.ListDispatches(ctx, filter)
	if err != nil {
		s.logger.Errorf("ListDispatches: %v", err)
		return nil, err
	}

	SortDispatches(dispatches)
	page := models.Paginate(dispatches, filter.PageNumber, filter.PageSize)
	return &page, nil
}

// ExportDispatches returns every dispatch matching the filter in list order. Paging fields are ignored.
func (s *DispatchService) ExportDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error) {
	if filter == nil {
		filter = &models.DispatchFilter{}
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	dispatches, err := s.dispatchRepo.ListDispatches(ctx, filter)
	if err != nil {
		s.logger.Errorf("ExportDispatches: %v", err)
		return nil, err
	}

	SortDispatches(dispatches)
	return dispatches, nil
}

// SortDispatches orders by scheduled date then creation time, both descending
func SortDispatches(dispatches []*models.Dispatch) {
	sort.SliceStable(dispatches, func(i, j int) bool {
		if dispatches[i].ScheduledDate != dispatches[j].ScheduledDate {
			return dispatches[i].ScheduledDate > dispatches[j].ScheduledDate
		}
		return dispatches[i].CreatedAt.After(dispatches[j].CreatedAt)
	})
}

// GetStatistics aggregates the dispatches matching the filter. Paging fields are ignored.
func (s *DispatchService) GetStatistics(ctx context.Context, filter *models.DispatchFilter) (*models.DispatchStatistics, error) {
	if filter == nil {
		filter = &models.DispatchFilter{}
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}

	dispatches, err := s.dispatchRepo.ListDispatches(ctx, filter)
	if err != nil {
		s.logger.Errorf("GetStatistics: %v", err)
		return nil, err
	}
	return ComputeStatistics(dispatches), nil
}

// ComputeStatistics builds the aggregate view of a set of dispatches
func ComputeStatistics(dispatches []*models.Dispatch) *models.DispatchStatistics {
	stats := &models.DispatchStatistics{
		TotalDispatches: len(dispatches),
		CountByStatus:   make(map[models.DispatchStatus]int, len(models.DispatchStatuses)),
		CountByPriority: make(map[models.Priority]int, len(models.Priorities)),
	}
	for _, st := range models.DispatchStatuses {
		stats.CountByStatus[st] = 0
	}
	for _, p := range models.Priorities {
		stats.CountByPriority[p] = 0
	}

	technicians := make(map[string]struct{})
	var durations []float64
	for _, d := range dispatches {
		stats.CountByStatus[d.Status]++
		stats.CountByPriority[d.Priority]++
		if d.ActualDuration != nil {
			durations = append(durations, float64(*d.ActualDuration))
		}
		for _, t := range d.Technicians {
			technicians[t.TechnicianID] = struct{}{}
		}
	}

	if stats.TotalDispatches > 0 {
		stats.CompletionRate = 100 * float64(stats.CountByStatus[models.DispatchStatusCompleted]) / float64(stats.TotalDispatches)
	}
	if len(durations) > 0 {
		stats.AverageDuration = stat.Mean(durations, nil)
	}
	stats.TechnicianCount = len(technicians)
	return stats
}

func (s *DispatchService) AddTimeEntry(ctx context.Context, dispatchID string, req *models.CreateTimeEntryRequest, actor string) (*models.TimeEntry, error) {
	if req == nil {
		return nil, models.NewValidationError("", "time entry is required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, models.NewValidationError("endTime", "must be after startTime")
	}
	if _, err := s.loadActive(ctx, dispatchID, "add time entry to"); err != nil {
		return nil, err
	}

	duration := int(req.EndTime.Sub(req.StartTime).Minutes())
	entry := &models.TimeEntry{
		ID:           utils.GenerateUUID(),
		DispatchID:   dispatchID,
		TechnicianID: req.TechnicianID,
		WorkType:     req.WorkType,
		StartTime:    req.StartTime.UTC(),
		EndTime:      req.EndTime.UTC(),
		Duration:     duration,
		Description:  req.Description,
		Billable:     req.Billable,
		HourlyRate:   req.HourlyRate,
		Approval:     models.Approval{Status: models.ApprovalStatusPending},
		CreatedBy:    actor,
		CreatedAt:    s.now(),
	}
	if req.HourlyRate != nil {
		total := roundCents(*req.HourlyRate * float64(duration) / 60)
		entry.TotalCost = &total
	}

	if err := s.itemRepo.SaveTimeEntry(ctx, entry); err != nil {
		s.logger.Errorf("AddTimeEntry to dispatch %s: %v", dispatchID, err)
		return nil, err
	}
	return entry, nil
}

func (s *DispatchService) AddExpense(ctx context.Context, dispatchID string, req *models.CreateExpenseRequest, actor string) (*models.Expense, error) {
	if req == nil {
		return nil, models.NewValidationError("", "expense is required")
	}
	if req.Amount <= 0 {
		return nil, models.NewValidationError("amount", "must be greater than 0")
	}
	if _, err := models.ParseDate(req.Date); err != nil {
		return nil, models.NewValidationError("date", err.Error())
	}
	if _, err := s.loadActive(ctx, dispatchID, "add expense to"); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}
	expense := &models.Expense{
		ID:           utils.GenerateUUID(),
		DispatchID:   dispatchID,
		TechnicianID: req.TechnicianID,
		Type:         req.Type,
		Amount:       req.Amount,
		Currency:     currency,
		Description:  req.Description,
		Date:         req.Date,
		ReceiptPath:  req.ReceiptPath,
		Approval:     models.Approval{Status: models.ApprovalStatusPending},
		CreatedBy:    actor,
		CreatedAt:    s.now(),
	}

	if err := s.itemRepo.SaveExpense(ctx, expense); err != nil {
		s.logger.Errorf("AddExpense to dispatch %s: %v", dispatchID, err)
		return nil, err
	}
	return expense, nil
}

func (s *DispatchService) AddMaterialUsage(ctx context.Context, dispatchID string, req *models.CreateMaterialUsageRequest, actor string) (*models.MaterialUsage, error) {
	if req == nil {
		return nil, models.NewValidationError("", "material usage is required")
	}
	if req.Quantity <= 0 {
		return nil, models.NewValidationError("quantity", "must be greater than 0")
	}
	if req.UnitPrice < 0 {
		return nil, models.NewValidationError("unitPrice", "must not be negative")
	}
	if _, err := s.loadActive(ctx, dispatchID, "add material to"); err != nil {
		return nil, err
	}

	now := s.now()
	usedAt := now
	if req.UsedAt != nil && !req.UsedAt.IsZero() {
		usedAt = req.UsedAt.UTC()
	}
	usedBy := req.UsedBy
	if usedBy == "" {
		usedBy = actor
	}
	material := &models.MaterialUsage{
		ID:          utils.GenerateUUID(),
		DispatchID:  dispatchID,
		ArticleID:   req.ArticleID,
		ArticleName: req.ArticleName,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TotalPrice:  roundCents(req.Quantity * req.UnitPrice),
		UsedBy:      usedBy,
		UsedAt:      usedAt,
		Approval:    models.Approval{Status: models.ApprovalStatusPending},
		CreatedAt:   now,
	}

	if err := s.itemRepo.SaveMaterial(ctx, material); err != nil {
		s.logger.Errorf("AddMaterialUsage to dispatch %s: %v", dispatchID, err)
		return nil, err
	}
	return material, nil
}

func (s *DispatchService) AddNote(ctx context.Context, dispatchID string, req *models.CreateNoteRequest, actor string) (*models.Note, error) {
	if req == nil || strings.TrimSpace(req.Content) == "" {
		return nil, models.NewValidationError("content", "note content is required")
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return nil, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", req.Priority))
	}
	if _, err := s.loadActive(ctx, dispatchID, "add note to"); err != nil {
		return nil, err
	}

	note := &models.Note{
		ID:         utils.GenerateUUID(),
		DispatchID: dispatchID,
		Content:    req.Content,
		Category:   req.Category,
		Priority:   req.Priority,
		CreatedBy:  actor,
		CreatedAt:  s.now(),
	}
	if err := s.itemRepo.SaveNote(ctx, note); err != nil {
		s.logger.Errorf("AddNote to dispatch %s: %v", dispatchID, err)
		return nil, err
	}
	return note, nil
}

// AddAttachment records metadata of a file the caller already stored
func (s *DispatchService) AddAttachment(ctx context.Context, dispatchID string, req *models.UploadAttachmentRequest, actor string) (*models.Attachment, error) {
	if req == nil || req.FileName == "" {
		return nil, models.NewValidationError("file", "file is required")
	}
	if _, err := s.loadActive(ctx, dispatchID, "attach file to"); err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		ID:          utils.GenerateUUID(),
		DispatchID:  dispatchID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeMB:      math.Round(float64(req.SizeBytes)/(1024*1024)*100) / 100,
		Category:    req.Category,
		StoragePath: req.StoragePath,
		UploadedBy:  actor,
		UploadedAt:  s.now(),
	}
	if err := s.itemRepo.SaveAttachment(ctx, attachment); err != nil {
		s.logger.Errorf("AddAttachment to dispatch %s: %v", dispatchID, err)
		return nil, err
	}
	return attachment, nil
}

func (s *DispatchService) ApproveTimeEntry(ctx context.Context, dispatchID, entryID, approver string) (*models.TimeEntry, error) {
	entry, err := s.itemRepo.GetTimeEntry(ctx, dispatchID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Approve(approver, s.now()) {
		if err := s.itemRepo.SaveTimeEntry(ctx, entry); err != nil {
			return nil, err
		}
		s.logger.Infof("Time entry %s of dispatch %s approved by %s", entryID, dispatchID, approver)
	}
	return entry, nil
}

func (s *DispatchService) ApproveExpense(ctx context.Context, dispatchID, expenseID, approver string) (*models.Expense, error) {
	expense, err := s.itemRepo.GetExpense(ctx, dispatchID, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.Approve(approver, s.now()) {
		if err := s.itemRepo.SaveExpense(ctx, expense); err != nil {
			return nil, err
		}
		s.logger.Infof("Expense %s of dispatch %s approved by %s", expenseID, dispatchID, approver)
	}
	return expense, nil
}

func (s *DispatchService) ApproveMaterial(ctx context.Context, dispatchID, materialID, approver string) (*models.MaterialUsage, error) {
	material, err := s.itemRepo.GetMaterial(ctx, dispatchID, materialID)
	if err != nil {
		return nil, err
	}
	if material.Approve(approver, s.now()) {
		if err := s.itemRepo.SaveMaterial(ctx, material); err != nil {
			return nil, err
		}
		s.logger.Infof("Material usage %s of dispatch %s approved by %s", materialID, dispatchID, approver)
	}
	return material, nil
}

// loadActive returns the dispatch or NotFound when it is absent or soft-deleted
func (s *DispatchService) loadActive(ctx context.Context, id, operation string) (*models.Dispatch, error) {
	dispatch, err := s.dispatchRepo.GetDispatch(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			s.logger.Warnf("Cannot %s dispatch %s: not found", operation, id)
		} else {
			s.logger.Errorf("Cannot %s dispatch %s: %v", operation, id, err)
		}
		return nil, err
	}
	if dispatch.IsDeleted {
		s.logger.Warnf("Cannot %s dispatch %s: deleted", operation, id)
		return nil, models.NewNotFoundError("dispatch", id)
	}
	return dispatch, nil
}

// technicianRows builds one row per technician carrying the dispatch's resolved slot. Technicians
// already assigned keep their AssignedAt.
func (s *DispatchService) technicianRows(ctx context.Context, dispatch *models.Dispatch, ids []string, previous []models.DispatchTechnician) []models.DispatchTechnician {
	existing := make(map[string]models.DispatchTechnician, len(previous))
	for _, p := range previous {
		existing[p.TechnicianID] = p
	}

	startTime, endTime := "", ""
	if dispatch.StartTime != "" {
		w := dispatch.Window()
		startTime, endTime = models.FormatClock(w.Start), models.FormatClock(w.End)
	}

	rows := make([]models.DispatchTechnician, 0, len(ids))
	for _, id := range ids {
		row, ok := existing[id]
		if !ok {
			row = models.DispatchTechnician{
				DispatchID:   dispatch.ID,
				TechnicianID: id,
				AssignedAt:   dispatch.UpdatedAt,
			}
			if user, err := s.technicianRepo.GetUser(ctx, id); err == nil {
				row.TechnicianName = user.FullName()
				row.TechnicianEmail = user.Email
			} else {
				s.logger.Debugf("No profile for technician %s on dispatch %s: %v", id, dispatch.ID, err)
			}
		}
		row.ScheduledDate = dispatch.ScheduledDate
		row.StartTime = startTime
		row.EndTime = endTime
		rows = append(rows, row)
	}
	return rows
}

func (s *DispatchService) recordTransition(ctx context.Context, dispatch *models.Dispatch, from models.DispatchStatus, actor string) {
	s.metrics.RecordStatusTransition(from, dispatch.Status)
	s.logger.Infof("Dispatch %s moved %s -> %s by %s", dispatch.ID, from, dispatch.Status, actor)
	s.publish(ctx, notify.Event{
		Type:           notify.EventDispatchStatus,
		DispatchID:     dispatch.ID,
		DispatchNumber: dispatch.DispatchNumber,
		JobID:          dispatch.JobID,
		Status:         string(dispatch.Status),
		PreviousStatus: string(from),
		TechnicianIDs:  dispatch.TechnicianIDs(),
		ScheduledDate:  dispatch.ScheduledDate,
		Actor:          actor,
	})
}

func (s *DispatchService) publish(ctx context.Context, event notify.Event) {
	event.OccurredAt = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warnf("Failed to publish %s for dispatch %s: %v", event.Type, event.DispatchID, err)
	}
}

// applyTransition sets the target status and the timestamps that come with it
func applyTransition(d *models.Dispatch, to models.DispatchStatus, now time.Time) {
	d.Status = to
	switch to {
	case models.DispatchStatusInProgress:
		if d.ActualStartTime == nil {
			started := now
			d.ActualStartTime = &started
		}
	case models.DispatchStatusCompleted:
		if d.ActualEndTime == nil {
			ended := now
			d.ActualEndTime = &ended
		}
		d.CompletionPercentage = 100
		d.ActualDuration = actualDuration(d)
	}
}

func actualDuration(d *models.Dispatch) *int {
	if d.ActualStartTime == nil || d.ActualEndTime == nil {
		return nil
	}
	minutes := int(d.ActualEndTime.Sub(*d.ActualStartTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return &minutes
}

// dispatchNumber renders DSP-YYYYMMDD-XXXXXXXX from the creation date and the id
func dispatchNumber(id string, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("DSP-%s-%s", at.Format("20060102"), suffix)
}

// validateSlot checks a start/end pair when both are present
func validateSlot(startTime, endTime string) error {
	if startTime != "" {
		if _, err := models.ParseClock(startTime); err != nil {
			return models.NewValidationError("startTime", err.Error())
		}
	}
	if endTime != "" {
		if _, err := models.ParseClock(endTime); err != nil {
			return models.NewValidationError("endTime", err.Error())
		}
	}
	if startTime != "" && endTime != "" {
		if _, err := models.NewTimeWindow(startTime, endTime); err != nil {
			return models.NewValidationError("endTime", err.Error())
		}
	}
	return nil
}

func validateFilter(f *models.DispatchFilter) error {
	if f.Status != "" && !f.Status.IsValid() {
		return models.NewValidationError("status", fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.Priority != "" && !f.Priority.IsValid() {
		return models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", f.Priority))
	}
	if f.DateFrom != "" {
		if _, err := models.ParseDate(f.DateFrom); err != nil {
			return models.NewValidationError("dateFrom", err.Error())
		}
	}
	if f.DateTo != "" {
		if _, err := models.ParseDate(f.DateTo); err != nil {
			return models.NewValidationError("dateTo", err.Error())
		}
	}
	if f.DateFrom != "" && f.DateTo != "" && f.DateFrom > f.DateTo {
		return models.NewValidationError("dateTo", "must not be before dateFrom")
	}
	return nil
}

// distinctIDs trims ids and drops blanks and duplicates, keeping the first occurrence
func distinctIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
