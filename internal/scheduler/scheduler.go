// SPDX-License-Identifier: AGPL-3.0-only

// Package scheduler runs workflows on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/workflow"
)

// Parser accepts standard five-field expressions, an optional leading
// seconds field and descriptors such as @hourly.
var Parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler manages cron jobs
type Scheduler struct {
	cron     *cron.Cron
	jobs     map[string]*model.Job
	entryIDs map[string]cron.EntryID
	mu       sync.RWMutex
	executor model.Executor
	config   *config.SchedulerConfig
	logger   *logging.Logger
}

// cronLogger forwards cron's own messages to our logger.
type cronLogger struct{ logger *logging.Logger }

func (l cronLogger) Printf(format string, args ...interface{}) {
	l.logger.Debugf("cron: "+format, args...)
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.SchedulerConfig, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	if cfg == nil {
		cfg = &config.SchedulerConfig{}
	}
	cronLog := cron.PrintfLogger(cronLogger{logger})
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		jobs:     make(map[string]*model.Job),
		entryIDs: make(map[string]cron.EntryID),
		config:   cfg,
		logger:   logger,
	}
}

// NewJob creates a pending job with a fresh ID.
func NewJob(workflowName, schedule string) *model.Job {
	return &model.Job{
		ID:        uuid.NewString(),
		Workflow:  workflowName,
		Schedule:  schedule,
		Status:    model.JobPending,
		CreatedAt: time.Now(),
	}
}

// Start begins the scheduler and stops it when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping scheduler: %v", err)
		}
	}()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	<-s.cron.Stop().Done()
	return nil
}

// SetExecutor sets the executor used by jobs.
func (s *Scheduler) SetExecutor(executor model.Executor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = executor
}

// AddJob validates and schedules a job.
func (s *Scheduler) AddJob(job *model.Job) error {
	if job.ID == "" {
		return errors.InvalidInput("job ID is required")
	}
	if !slices.Contains(workflow.Names(), job.Workflow) {
		return errors.NotFound("workflow", job.Workflow)
	}
	if _, err := Parser.Parse(job.Schedule); err != nil {
		return errors.InvalidInput(fmt.Sprintf("schedule %q: %v", job.Schedule, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return errors.AlreadyExists("job", job.ID)
	}
	if err := s.scheduleJob(job); err != nil {
		return err
	}
	s.jobs[job.ID] = job
	s.logger.Infof("Scheduled workflow %s (%s) as job %s", job.Workflow, job.Schedule, job.ID)
	return nil
}

// RemoveJob unschedules a job.
func (s *Scheduler) RemoveJob(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobID]; !exists {
		return errors.NotFound("job", jobID)
	}
	if entryID, exists := s.entryIDs[jobID]; exists {
		s.cron.Remove(entryID)
		delete(s.entryIDs, jobID)
	}
	delete(s.jobs, jobID)
	return nil
}

// GetJob returns a snapshot of a job.
func (s *Scheduler) GetJob(jobID string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, errors.NotFound("job", jobID)
	}
	return s.snapshot(job), nil
}

// ListJobs returns snapshots of all jobs ordered by creation time.
func (s *Scheduler) ListJobs() []*model.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, s.snapshot(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// snapshot copies job and fills NextRun. Callers hold s.mu.
func (s *Scheduler) snapshot(job *model.Job) *model.Job {
	c := *job
	if entryID, ok := s.entryIDs[job.ID]; ok {
		entry := s.cron.Entry(entryID)
		c.NextRun = entry.Next
		if c.NextRun.IsZero() && entry.Schedule != nil {
			// cron fills Next only once its run loop has started
			c.NextRun = entry.Schedule.Next(time.Now())
		}
	}
	return &c
}

// scheduleJob adds job to cron. Callers hold s.mu.
func (s *Scheduler) scheduleJob(job *model.Job) error {
	if s.executor == nil {
		return fmt.Errorf("cannot schedule job: no executor set")
	}
	executor := s.executor

	run := func() {
		s.mu.Lock()
		if _, exists := s.jobs[job.ID]; !exists {
			s.mu.Unlock()
			return
		}
		job.LastRun = time.Now()
		job.Status = model.JobRunning
		s.mu.Unlock()

		err := executor.Execute(context.Background(), job.Workflow, s.config.Timeout)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			job.Status = model.JobFailed
			job.LastError = err.Error()
			s.logger.Warnf("Job %s (%s) failed: %v", job.ID, job.Workflow, err)
			return
		}
		job.Status = model.JobCompleted
		job.LastError = ""
	}

	entryID, err := s.cron.AddFunc(job.Schedule, run)
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	s.entryIDs[job.ID] = entryID
	return nil
}
