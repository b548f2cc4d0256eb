package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"threatwire/internal/ports"
)

// Scheduler wires the interval driver with the ingestion pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, notifier: notifier, logger: logger}
}

// Start registers the pipeline with the provided scheduler driver. A tick
// that lands while a run is still active is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.pipeline.Run(ctx)
		if err != nil {
			if errors.Is(err, ErrRunInProgress) {
				s.log("scheduled run skipped, previous still active", "trigger", trigger)
				return
			}
			s.log("scheduled run failed", "error", err)
			return
		}

		if s.notifier != nil {
			if nerr := s.notifier.PublishRunSummary(ctx, result); nerr != nil {
				s.log("run summary notification failed", "error", nerr)
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

func (s *Scheduler) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
