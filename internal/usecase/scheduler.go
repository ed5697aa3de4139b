package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

// Scheduler wires the cron driver with the workflows it triggers.
type Scheduler struct {
	driver    ports.Scheduler
	runner    *Runner
	workflows []Workflow
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger, workflows ...Workflow) *Scheduler {
	return &Scheduler{driver: driver, runner: runner, workflows: workflows, logger: componentLogger(logger, "scheduler")}
}

// Start registers the workflows with the provided scheduler. Each trigger runs
// them in order; a workflow that cannot take the run lock is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil || len(s.workflows) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		for _, wf := range s.workflows {
			if ctx.Err() != nil {
				return
			}
			s.logger.Info("scheduled run", "workflow", wf.Name, "trigger", trigger)
			if _, err := s.runner.Run(ctx, wf); err != nil {
				if errors.Is(err, domain.ErrRunInProgress) {
					s.logger.Warn("previous run still in progress, skipping", "workflow", wf.Name)
					continue
				}
				s.logger.Error("scheduled run failed", "workflow", wf.Name, "error", err)
			}
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
