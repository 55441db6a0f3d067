package services

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/notify"
	"dispatch-backend/repository"
	"dispatch-backend/utils/logger"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockLogger implements the logger interface for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Info(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Error(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Fatal(args ...interface{}) {
	m.Called(args...)
}

func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return m
}

func newMockLogger() *MockLogger {
	mockLogger := &MockLogger{}
	mockLogger.On("Debug", mock.Anything).Return().Maybe()
	mockLogger.On("Debugf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	mockLogger.On("Info", mock.Anything).Return().Maybe()
	mockLogger.On("Infof", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	mockLogger.On("Error", mock.Anything).Return().Maybe()
	mockLogger.On("Errorf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	mockLogger.On("Warn", mock.Anything).Return().Maybe()
	mockLogger.On("Warnf", mock.AnythingOfType("string"), mock.Anything).Return().Maybe()
	return mockLogger
}

// memStore backs every repository interface with maps
type memStore struct {
	mu sync.Mutex

	dispatches  map[string]*models.Dispatch
	timeEntries map[string]*models.TimeEntry
	expenses    map[string]*models.Expense
	materials   map[string]*models.MaterialUsage
	attachments []models.Attachment
	notes       []models.Note
	jobs        map[string]*models.ServiceOrderJob
	users       map[string]*models.User
	leaves      map[string][]*models.TechnicianLeave
	hours       map[string][]models.TechnicianWorkingHours
	locks       map[string]string

	createErr     error
	lockCalls     int
	releasedLocks []string
}

func newMemStore() *memStore {
	return &memStore{
		dispatches:  make(map[string]*models.Dispatch),
		timeEntries: make(map[string]*models.TimeEntry),
		expenses:    make(map[string]*models.Expense),
		materials:   make(map[string]*models.MaterialUsage),
		jobs:        make(map[string]*models.ServiceOrderJob),
		users:       make(map[string]*models.User),
		leaves:      make(map[string][]*models.TechnicianLeave),
		hours:       make(map[string][]models.TechnicianWorkingHours),
		locks:       make(map[string]string),
	}
}

func (s *memStore) GetDispatchRepository() repository.DispatchRepositoryInterface         { return s }
func (s *memStore) GetDispatchItemRepository() repository.DispatchItemRepositoryInterface { return s }
func (s *memStore) GetJobRepository() repository.JobRepositoryInterface                   { return s }
func (s *memStore) GetTechnicianRepository() repository.TechnicianRepositoryInterface     { return s }
func (s *memStore) GetLockRepository() repository.LockRepositoryInterface                 { return s }

func copyDispatch(d *models.Dispatch) *models.Dispatch {
	c := *d
	c.Technicians = append([]models.DispatchTechnician(nil), d.Technicians...)
	return &c
}

func (s *memStore) CreateDispatch(ctx context.Context, dispatch *models.Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.dispatches[dispatch.ID] = copyDispatch(dispatch)
	return nil
}

func (s *memStore) GetDispatch(ctx context.Context, id string) (*models.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dispatches[id]
	if !ok {
		return nil, models.NewNotFoundError("dispatch", id)
	}
	return copyDispatch(d), nil
}

func (s *memStore) GetDispatchTechnicians(ctx context.Context, dispatchID string) ([]models.DispatchTechnician, error) {
	d, err := s.GetDispatch(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	return d.Technicians, nil
}

func (s *memStore) SaveDispatch(ctx context.Context, dispatch *models.Dispatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatches[dispatch.ID] = copyDispatch(dispatch)
	return nil
}

func (s *memStore) ReplaceTechnicians(ctx context.Context, dispatch *models.Dispatch, previous []models.DispatchTechnician) error {
	return s.SaveDispatch(ctx, dispatch)
}

func (s *memStore) ListDispatches(ctx context.Context, filter *models.DispatchFilter) ([]*models.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Dispatch
	for _, d := range s.dispatches {
		if d.IsDeleted || !filter.Matches(d) {
			continue
		}
		if filter != nil && filter.TechnicianID != "" && !hasTechnician(d, filter.TechnicianID) {
			continue
		}
		out = append(out, copyDispatch(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasTechnician(d *models.Dispatch, id string) bool {
	for _, t := range d.Technicians {
		if t.TechnicianID == id {
			return true
		}
	}
	return false
}

func (s *memStore) GetTechnicianAssignments(ctx context.Context, technicianID, from, to string) ([]models.DispatchTechnician, error) {
	dispatches, _ := s.GetDispatchesForTechnician(ctx, technicianID, from, to)
	var out []models.DispatchTechnician
	for _, d := range dispatches {
		for _, t := range d.Technicians {
			if t.TechnicianID == technicianID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (s *memStore) GetDispatchesForTechnician(ctx context.Context, technicianID, from, to string) ([]*models.Dispatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Dispatch
	for _, d := range s.dispatches {
		if hasTechnician(d, technicianID) && d.ScheduledDate >= from && d.ScheduledDate <= to {
			out = append(out, copyDispatch(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SaveTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *entry
	s.timeEntries[entry.ID] = &c
	return nil
}

func (s *memStore) GetTimeEntry(ctx context.Context, dispatchID, id string) (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timeEntries[id]
	if !ok || e.DispatchID != dispatchID {
		return nil, models.NewNotFoundError("time entry", id)
	}
	c := *e
	return &c, nil
}

func (s *memStore) ListTimeEntries(ctx context.Context, dispatchID string) ([]models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.TimeEntry{}
	for _, e := range s.timeEntries {
		if e.DispatchID == dispatchID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memStore) SaveExpense(ctx context.Context, expense *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *expense
	s.expenses[expense.ID] = &c
	return nil
}

func (s *memStore) GetExpense(ctx context.Context, dispatchID, id string) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.DispatchID != dispatchID {
		return nil, models.NewNotFoundError("expense", id)
	}
	c := *e
	return &c, nil
}

func (s *memStore) ListExpenses(ctx context.Context, dispatchID string) ([]models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Expense{}
	for _, e := range s.expenses {
		if e.DispatchID == dispatchID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *memStore) SaveMaterial(ctx context.Context, material *models.MaterialUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *material
	s.materials[material.ID] = &c
	return nil
}

func (s *memStore) GetMaterial(ctx context.Context, dispatchID, id string) (*models.MaterialUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok || m.DispatchID != dispatchID {
		return nil, models.NewNotFoundError("material", id)
	}
	c := *m
	return &c, nil
}

func (s *memStore) ListMaterials(ctx context.Context, dispatchID string) ([]models.MaterialUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.MaterialUsage{}
	for _, m := range s.materials {
		if m.DispatchID == dispatchID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) SaveAttachment(ctx context.Context, attachment *models.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments = append(s.attachments, *attachment)
	return nil
}

func (s *memStore) ListAttachments(ctx context.Context, dispatchID string) ([]models.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Attachment{}
	for _, a := range s.attachments {
		if a.DispatchID == dispatchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) SaveNote(ctx context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, *note)
	return nil
}

func (s *memStore) ListNotes(ctx context.Context, dispatchID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Note{}
	for _, n := range s.notes {
		if n.DispatchID == dispatchID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) GetJob(ctx context.Context, id string) (*models.ServiceOrderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, models.NewNotFoundError("job", id)
	}
	c := *j
	return &c, nil
}

func (s *memStore) SaveJob(ctx context.Context, job *models.ServiceOrderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *job
	s.jobs[job.JobID] = &c
	return nil
}

func (s *memStore) ListJobsByStatus(ctx context.Context, statuses ...models.JobStatus) ([]*models.ServiceOrderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ServiceOrderJob
	for _, j := range s.jobs {
		for _, st := range statuses {
			if j.Status == st {
				c := *j
				out = append(out, &c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

func (s *memStore) ListJobsByServiceOrder(ctx context.Context, serviceOrderID string) ([]*models.ServiceOrderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ServiceOrderJob
	for _, j := range s.jobs {
		if j.ServiceOrderID == serviceOrderID {
			c := *j
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out, nil
}

func (s *memStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user", id)
	}
	c := *u
	return &c, nil
}

func (s *memStore) ListTechnicians(ctx context.Context) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.User
	for _, u := range s.users {
		if u.IsTechnician() {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetLeaves(ctx context.Context, technicianID string) ([]*models.TechnicianLeave, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaves[technicianID], nil
}

func (s *memStore) GetWorkingHours(ctx context.Context, technicianID string) ([]models.TechnicianWorkingHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hours[technicianID], nil
}

func (s *memStore) Acquire(ctx context.Context, technicianID, date, owner string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockCalls++
	key := repository.LockKey(technicianID, date)
	if holder, ok := s.locks[key]; ok && holder != owner {
		return false, nil
	}
	s.locks[key] = owner
	return true, nil
}

func (s *memStore) Release(ctx context.Context, technicianID, date, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repository.LockKey(technicianID, date)
	if s.locks[key] == owner {
		delete(s.locks, key)
		s.releasedLocks = append(s.releasedLocks, key)
	}
	return nil
}

func (s *memStore) SweepExpired(ctx context.Context) (int, error) {
	return 0, nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func technician(id, first, last string, skills ...string) *models.User {
	return &models.User{
		ID:        id,
		Email:     first + "@example.com",
		FirstName: first,
		LastName:  last,
		Role:      models.UserRoleTechnician,
		Status:    models.UserStatusActive,
		Skills:    skills,
	}
}

// seedDispatch stores a dispatch assigned to the given technicians
func (s *memStore) seedDispatch(id string, status models.DispatchStatus, date, start, end string, techIDs ...string) *models.Dispatch {
	d := &models.Dispatch{
		ID:             id,
		DispatchNumber: "DSP-" + id,
		Status:         status,
		Priority:       models.PriorityMedium,
		ScheduledDate:  date,
		StartTime:      start,
		EndTime:        end,
		CreatedAt:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, t := range techIDs {
		d.Technicians = append(d.Technicians, models.DispatchTechnician{
			DispatchID:    id,
			TechnicianID:  t,
			ScheduledDate: date,
			StartTime:     start,
			EndTime:       end,
		})
	}
	s.dispatches[id] = d
	return d
}
