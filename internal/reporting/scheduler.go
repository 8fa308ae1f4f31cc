package reporting

import (
	"context"
	"sync"
	"time"

	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

// Job is one tenant's periodic report configuration: a standard 5-field
// cron expression plus the report Kind and window length it produces.
type Job struct {
	ClientID     string
	Schedule     string
	Kind         Kind
	WindowLength time.Duration
	Filter       kpi.Filter
	Actor        tenant.Actor

	schedule cron.Schedule
	nextRun  time.Time
	lastRun  time.Time
}

// Scheduler polls its registered jobs and fires each at most once per due
// interval: a job whose next run time (nextRun) has passed fires once, and
// nextRun is then recomputed from the fire time forward, so a long
// outage causes exactly one catch-up run
// rather than one run per missed interval.
type Scheduler struct {
	mu           sync.Mutex
	orchestrator *Orchestrator
	renderer     Renderer
	jobs         map[string]*Job
	parser       cron.Parser
	log          *logger.Logger
}

// NewScheduler wires a Scheduler to an Orchestrator and Renderer.
func NewScheduler(orchestrator *Orchestrator, renderer Renderer, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("reporting")
	}
	return &Scheduler{
		orchestrator: orchestrator,
		renderer:     renderer,
		jobs:         make(map[string]*Job),
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		log:          log,
	}
}

// AddJob registers or replaces a tenant's report job, computing its first
// next run time from now.
func (s *Scheduler) AddJob(job Job, now time.Time) error {
	schedule, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return err
	}
	job.schedule = schedule
	job.nextRun = schedule.Next(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	jobCopy := job
	s.jobs[job.ClientID] = &jobCopy
	return nil
}

// RemoveJob unregisters a tenant's job, if any.
func (s *Scheduler) RemoveJob(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, clientID)
}

// Tick fires every due job at most once, returning the combined errors (if
// any) from generation/rendering without aborting the other jobs' runs.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	due := s.collectDue(now)

	var errs error
	for _, job := range due {
		if err := s.runJob(ctx, job, now); err != nil {
			errs = multierr.Append(errs, err)
			s.log.WithField("client_id", job.ClientID).WithField("error", err).Error("report job failed")
		}
	}
	return errs
}

func (s *Scheduler) collectDue(now time.Time) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Job, 0)
	for _, job := range s.jobs {
		if !job.nextRun.IsZero() && now.After(job.nextRun) {
			due = append(due, job)
		}
	}
	return due
}

func (s *Scheduler) runJob(ctx context.Context, job *Job, now time.Time) error {
	tc, err := tenant.Resolve(job.Actor, job.ClientID)
	if err != nil {
		return err
	}
	window := kpi.Window{From: now.Add(-job.WindowLength), To: now}

	payload, err := s.orchestrator.Generate(ctx, tc, window, job.Kind, job.Filter, now)
	if err == nil && s.renderer != nil {
		_, err = s.renderer.RenderPDF(payload)
	}

	s.mu.Lock()
	job.lastRun = now
	job.nextRun = job.schedule.Next(now)
	s.mu.Unlock()

	return err
}
