package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/infra/metrics"
)

// ExpiryWorker periodically flips stale discovered/ready jobs to expired.
type ExpiryWorker struct {
	interval time.Duration
	maxAge   time.Duration
	jobs     repository.JobRepository
	log      *zerolog.Logger
}

func NewExpiryWorker(interval, maxAge time.Duration, jobs repository.JobRepository, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		maxAge:   maxAge,
		jobs:     jobs,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("max_age", w.maxAge).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-w.maxAge)
			n, err := w.jobs.MarkExpired(ctx, cutoff)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.AddJobsExpired(n)
				w.log.Info().Int64("count", n).Msg("stale jobs expired")
			}
		}
	}
}
