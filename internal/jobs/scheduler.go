// Package jobs runs background maintenance on cron schedules.
//
// Example usage:
//
//	s := jobs.NewScheduler(ctx)
//	err := s.Add(jobs.Job{Name: "audit_prune", Spec: "0 3 * * *", Run: prune})
//	s.Start()
//	defer s.Stop()
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a cron specification cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid cron schedule")

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is one named maintenance task.
type Job struct {
	Name string
	// Spec is a standard 5-field cron expression.
	Spec string
	Run  func(ctx context.Context) error
}

type entry struct {
	job      Job
	schedule cron.Schedule
}

// Scheduler wraps a robfig cron runner. Jobs run one at a time per name;
// a run that is still going when its next tick fires is skipped.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	parser cron.Parser

	mu      sync.Mutex
	entries map[string]entry
	running map[string]bool
}

// NewScheduler creates a scheduler whose job runs receive ctx.
func NewScheduler(ctx context.Context) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		ctx:     ctx,
		cron:    cron.New(cron.WithParser(parser)),
		parser:  parser,
		entries: make(map[string]entry),
		running: make(map[string]bool),
	}
}

// Add registers a job.
// PRE: job.Name is unique and non-empty; job.Run is set
// POST: Job scheduled, or ErrInvalidSchedule for an unparsable expression
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run func")
	}
	schedule, err := s.parser.Parse(job.Spec)
	if err != nil {
		return errors.Join(ErrInvalidSchedule, fmt.Errorf("%s: %w", job.Name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[job.Name]; dup {
		return fmt.Errorf("job %q already added", job.Name)
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.execute(job) }))
	s.entries[job.Name] = entry{job: job, schedule: schedule}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, name := range s.Names() {
		slog.Info("job_event", "event", "scheduled", "job", name, "next_run", s.NextRun(name))
	}
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow executes a job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(e.job)
}

// NextRun returns the next scheduled time for name, or zero if unknown.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return e.schedule.Next(time.Now())
}

// Names lists registered jobs in name order.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) execute(job Job) error {
	s.mu.Lock()
	if s.running[job.Name] {
		s.mu.Unlock()
		slog.Warn("job_event", "event", "skipped_overlap", "job", job.Name)
		return nil
	}
	s.running[job.Name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.Name)
		s.mu.Unlock()
	}()

	start := time.Now()
	err := job.Run(s.ctx)
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		slog.Warn("job_event", "event", "failed", "job", job.Name, "duration_ms", durationMs, "error", err)
		return err
	}
	slog.Debug("job_event", "event", "completed", "job", job.Name, "duration_ms", durationMs)
	return nil
}
