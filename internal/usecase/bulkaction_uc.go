// File: internal/usecase/bulkaction_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/infra/metrics"
)

// Compile-time check
var _ BulkActionUseCase = (*bulkActionUC)(nil)

// MaxBulkActionSize caps one bulk request. Mirrored client-side by the
// selection package.
const MaxBulkActionSize = 100

type BulkAction string

const (
	BulkActionMoveToReady BulkAction = "move_to_ready"
	BulkActionSkip        BulkAction = "skip"
	BulkActionRescore     BulkAction = "rescore"
)

// BulkItemResult is the per-job outcome inside progress and completed
// events.
type BulkItemResult struct {
	JobID  string          `json:"job_id"`
	OK     bool            `json:"ok"`
	Status model.JobStatus `json:"status,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BulkEvent is one entry of the ordered, replayable event log for a bulk
// request: exactly one started, one progress per processed item, then one
// completed (or error). Completed always equals Succeeded+Failed.
type BulkEvent struct {
	Type      string           `json:"type"` // started | progress | completed | error
	Requested int              `json:"requested,omitempty"`
	Completed int              `json:"completed"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Result    *BulkItemResult  `json:"result,omitempty"`
	Results   []BulkItemResult `json:"results,omitempty"`
	Message   string           `json:"message,omitempty"`
}

type BulkActionUseCase interface {
	// Execute applies the action to every job id, pushing events to emit in
	// order. A non-nil error is a whole-batch rejection (validation); once
	// the started event is emitted, failures are per-item only.
	Execute(ctx context.Context, action BulkAction, jobIDs []string, emit func(BulkEvent)) error
}

type bulkActionUC struct {
	jobs    repository.JobRepository
	scorer  adapter.Scorer
	profile adapter.Profile
	log     *zerolog.Logger
}

func NewBulkActionUseCase(jobs repository.JobRepository, scorer adapter.Scorer, profile adapter.Profile, logger *zerolog.Logger) *bulkActionUC {
	l := logger.With().Str("component", "BulkAction").Logger()
	return &bulkActionUC{jobs: jobs, scorer: scorer, profile: profile, log: &l}
}

func (b *bulkActionUC) Execute(ctx context.Context, action BulkAction, jobIDs []string, emit func(BulkEvent)) error {
	switch action {
	case BulkActionMoveToReady, BulkActionSkip, BulkActionRescore:
	default:
		return fmt.Errorf("%w: unknown bulk action %q", domain.ErrInvalidArgument, action)
	}
	if len(jobIDs) == 0 {
		return fmt.Errorf("%w: no job ids", domain.ErrInvalidArgument)
	}
	if len(jobIDs) > MaxBulkActionSize {
		return domain.ErrBatchTooLarge
	}

	emit(BulkEvent{Type: "started", Requested: len(jobIDs)})

	var completed, succeeded, failed int
	results := make([]BulkItemResult, 0, len(jobIDs))

	// Items run sequentially in request order; each failure is its own
	// result entry, never an abort.
	for _, id := range jobIDs {
		res := b.applyOne(ctx, action, id)
		completed++
		if res.OK {
			succeeded++
		} else {
			failed++
		}
		metrics.IncBulkItem(string(action), res.OK)
		results = append(results, res)
		emit(BulkEvent{
			Type:      "progress",
			Completed: completed,
			Succeeded: succeeded,
			Failed:    failed,
			Result:    &res,
		})
	}

	emit(BulkEvent{
		Type:      "completed",
		Completed: completed,
		Succeeded: succeeded,
		Failed:    failed,
		Results:   results,
	})
	b.log.Info().
		Str("action", string(action)).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Msg("bulk action finished")
	return nil
}

func (b *bulkActionUC) applyOne(ctx context.Context, action BulkAction, id string) BulkItemResult {
	job, err := b.jobs.FindByID(ctx, nil, id)
	if err != nil {
		return BulkItemResult{JobID: id, OK: false, Error: err.Error()}
	}

	switch action {
	case BulkActionMoveToReady:
		if !job.Status.CanTransition(model.JobStatusReady) {
			return BulkItemResult{JobID: id, OK: false, Status: job.Status,
				Error: transitionErr(job.Status, model.JobStatusReady).Error()}
		}
		now := time.Now()
		job.Status = model.JobStatusReady
		job.ProcessedAt = &now

	case BulkActionSkip:
		if !job.Status.CanTransition(model.JobStatusSkipped) {
			return BulkItemResult{JobID: id, OK: false, Status: job.Status,
				Error: transitionErr(job.Status, model.JobStatusSkipped).Error()}
		}
		job.Status = model.JobStatusSkipped

	case BulkActionRescore:
		score, serr := b.scorer.Score(ctx, job, b.profile)
		if serr != nil {
			return BulkItemResult{JobID: id, OK: false, Status: job.Status, Error: serr.Error()}
		}
		job.SuitabilityScore = &score.Value
		job.SuitabilityReason = score.Reason
	}

	if err := b.jobs.Update(ctx, nil, job); err != nil {
		return BulkItemResult{JobID: id, OK: false, Status: job.Status, Error: err.Error()}
	}
	return BulkItemResult{JobID: id, OK: true, Status: job.Status}
}

func transitionErr(from, to model.JobStatus) error {
	return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, from, to)
}
