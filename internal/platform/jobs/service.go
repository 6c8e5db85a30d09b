// Package jobs runs background work through a single queue worker and
// records every run in job_runs.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"staffeval/internal/domain/evaluation"
)

const (
	JobEvaluationReminder = "evaluation_reminder"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	queueSize = 128
)

// Metrics is satisfied by *metrics.Collector.
type Metrics interface {
	JobRun(jobType, status string)
	RemindersSent(n int)
}

type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

type MissingEvaluations interface {
	EvaluatorsMissing(ctx context.Context, tenantID string, period evaluation.Period) (map[string]int, error)
}

type Notifier interface {
	Create(ctx context.Context, tenantID, userID, ntype, title, body string) error
}

type Service struct {
	store       StoreAPI
	tenants     TenantLister
	evaluations MissingEvaluations
	notify      Notifier
	metrics     Metrics
	interval    time.Duration
	now         func() time.Time
	queue       chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

type Deps struct {
	Store       StoreAPI
	Tenants     TenantLister
	Evaluations MissingEvaluations
	Notify      Notifier
	Metrics     Metrics
	// ReminderInterval of zero disables the reminder ticker.
	ReminderInterval time.Duration
}

func New(deps Deps) *Service {
	return &Service{
		store:       deps.Store,
		tenants:     deps.Tenants,
		evaluations: deps.Evaluations,
		notify:      deps.Notify,
		metrics:     deps.Metrics,
		interval:    deps.ReminderInterval,
		now:         time.Now,
		queue:       make(chan job, queueSize),
	}
}

// Start launches the worker and the reminder ticker. Both stop when ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.interval > 0 {
		go s.scheduleReminders(ctx, s.interval)
	}
}

func (s *Service) Enqueue(jobType, tenantID string, run func(context.Context) (any, error)) bool {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType, "tenantId", tenantID)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, tenantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, TenantID: tenantID, Run: run})
}

func (s *Service) ListRuns(ctx context.Context, tenantID string, filter RunFilter) ([]Run, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.store.ListRuns(ctx, tenantID, filter)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "tenantId", j.TenantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.store.StartRun(ctx, j.TenantID, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	if s.metrics != nil {
		s.metrics.JobRun(j.Type, status)
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if finishErr := s.store.FinishRun(ctx, runID, status, detailsJSON); finishErr != nil {
			slog.Warn("job run update failed", "runId", runID, "err", finishErr)
		}
	}
	return details, err
}

func (s *Service) scheduleReminders(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EnqueueReminders(ctx)
		}
	}
}

// EnqueueReminders queues one reminder job per tenant.
func (s *Service) EnqueueReminders(ctx context.Context) {
	tenants, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		slog.Warn("reminder scheduler tenant lookup failed", "err", err)
		return
	}
	for _, tenantID := range tenants {
		s.Enqueue(JobEvaluationReminder, tenantID, func(ctx context.Context) (any, error) {
			return s.SendReminders(ctx, tenantID)
		})
	}
}

// RunReminders sends reminders for one tenant immediately and records the
// run.
func (s *Service) RunReminders(ctx context.Context, tenantID string) (ReminderReport, error) {
	details, err := s.RunNow(ctx, JobEvaluationReminder, tenantID, func(ctx context.Context) (any, error) {
		return s.SendReminders(ctx, tenantID)
	})
	report, _ := details.(ReminderReport)
	return report, err
}
