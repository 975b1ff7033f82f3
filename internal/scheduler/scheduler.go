// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler evaluates cron expressions and runs jobs on their schedule.
type Scheduler struct {
	jobs []Job
	cron *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a new Scheduler for the given jobs. Jobs with an empty
// schedule are disabled.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs: jobs,
		cron: newCron(),
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

// Start registers every job with a valid schedule and starts the cron
// ticker. Invalid schedules are logged and skipped. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) int {
	registered := 0
	for _, job := range s.jobs {
		if job.Schedule == "" || job.Run == nil {
			continue
		}

		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			start := time.Now()
			slog.Info("cron firing job", "name", job.Name)
			if err := job.Run(ctx); err != nil {
				slog.Error("cron job failed", "name", job.Name, "error", err)
				return
			}
			slog.Debug("cron job done", "name", job.Name, "duration", time.Since(start))
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", job.Name, "schedule", job.Schedule, "error", err)
			continue
		}
		registered++
		slog.Info("scheduled job", "name", job.Name, "schedule", job.Schedule)
	}

	s.cron.Start()
	return registered
}

// Reload stops the existing cron, creates a new one, and starts it again.
func (s *Scheduler) Reload(ctx context.Context) int {
	s.cron.Stop()
	s.cron = newCron()
	return s.Start(ctx)
}

// Stop stops the cron ticker and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
