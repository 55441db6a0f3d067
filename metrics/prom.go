package metrics

import (
	"dispatch-backend/models"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Assignment outcomes recorded by RecordAssignment
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Recorder receives dispatch and planning events
type Recorder interface {
	RecordStatusTransition(from, to models.DispatchStatus)
	RecordAssignment(outcome string)
	RecordConflicts(conflicts []models.AssignmentConflict)
	RecordDispatchCreationFailure()
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	transitions      *prometheus.CounterVec
	assignments      *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	creationFailures prometheus.Counter
	httpLatency      *prometheus.HistogramVec
}

// NewPromSink registers the service metrics on the provided registerer.
// If reg is nil, the default registerer is used. If the collectors are already
// registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_status_transitions_total",
		Help: "Total number of dispatch status transitions",
	}, []string{"from", "to"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_assignments_total",
		Help: "Total number of job assignment attempts by outcome",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_assignment_conflicts_total",
		Help: "Total number of assignment conflicts by type",
	}, []string{"type"})
	creationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_dispatch_creation_failures_total",
		Help: "Assignments that succeeded but whose dispatch could not be created",
	})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	var err error
	if transitions, err = register(reg, transitions); err != nil {
		return nil, err
	}
	if assignments, err = register(reg, assignments); err != nil {
		return nil, err
	}
	if conflicts, err = register(reg, conflicts); err != nil {
		return nil, err
	}
	if creationFailures, err = register(reg, creationFailures); err != nil {
		return nil, err
	}
	if httpLatency, err = register(reg, httpLatency); err != nil {
		return nil, err
	}

	return &PromSink{
		transitions:      transitions,
		assignments:      assignments,
		conflicts:        conflicts,
		creationFailures: creationFailures,
		httpLatency:      httpLatency,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordStatusTransition(from, to models.DispatchStatus) {
	s.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (s *PromSink) RecordAssignment(outcome string) {
	s.assignments.WithLabelValues(outcome).Inc()
}

func (s *PromSink) RecordConflicts(conflicts []models.AssignmentConflict) {
	for _, c := range conflicts {
		s.conflicts.WithLabelValues(string(c.Type)).Inc()
	}
}

func (s *PromSink) RecordDispatchCreationFailure() {
	s.creationFailures.Inc()
}

func (s *PromSink) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	s.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// NopRecorder discards every event
type NopRecorder struct{}

func (NopRecorder) RecordStatusTransition(models.DispatchStatus, models.DispatchStatus) {}
func (NopRecorder) RecordAssignment(string)                                             {}
func (NopRecorder) RecordConflicts([]models.AssignmentConflict)                         {}
func (NopRecorder) RecordDispatchCreationFailure()                                      {}
func (NopRecorder) ObserveHTTPRequest(string, string, int, time.Duration)               {}
