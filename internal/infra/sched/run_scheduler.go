package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/usecase"
)

// RunScheduler triggers a pipeline run on a fixed cadence. A trigger that
// lands while a run is still in flight is skipped, not queued.
type RunScheduler struct {
	interval time.Duration
	pipeline usecase.PipelineUseCase
	log      *zerolog.Logger
}

func NewRunScheduler(interval time.Duration, pipeline usecase.PipelineUseCase, logger *zerolog.Logger) *RunScheduler {
	l := logger.With().Str("component", "RunScheduler").Logger()
	return &RunScheduler{
		interval: interval,
		pipeline: pipeline,
		log:      &l,
	}
}

func (s *RunScheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("Starting run scheduler")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Stopping run scheduler")
			return ctx.Err()
		case <-ticker.C:
			run, err := s.pipeline.StartRun(ctx, model.RunOptions{})
			switch {
			case err == nil:
				s.log.Info().Str("run_id", run.ID).Msg("scheduled pipeline run started")
			case errors.Is(err, domain.ErrPipelineAlreadyRunning):
				s.log.Debug().Msg("scheduled trigger skipped, run already in flight")
			default:
				s.log.Error().Err(err).Msg("scheduled pipeline run failed to start")
			}
		}
	}
}
