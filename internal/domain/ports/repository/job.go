package repository

import (
	"context"
	"time"

	"jobpilot/internal/domain/model"
)

// BulkCreateResult reports how an import batch split between newly created
// rows and rows skipped as duplicates.
type BulkCreateResult struct {
	Created int
	Skipped int
}

// JobFilter narrows List queries.
type JobFilter struct {
	Status model.JobStatus
	Source model.SourceID
	Offset int
	Limit  int
}

type JobRepository interface {
	// AllDedupKeys returns the dedup identity (external id or URL) of every
	// stored job, for import-time deduplication.
	AllDedupKeys(ctx context.Context) (map[string]struct{}, error)

	// BulkCreate inserts jobs, skipping any whose job_url (or source
	// external id) already exists.
	BulkCreate(ctx context.Context, jobs []*model.Job) (BulkCreateResult, error)

	// Discovered returns every job still in discovered status, oldest
	// first. The scoring loop skips entries with a cached score but counts
	// them toward the progress total.
	Discovered(ctx context.Context) ([]*model.Job, error)

	// ScoredDiscovered returns discovered jobs carrying a score of at least
	// minScore, best first, ties broken by earliest discovery.
	ScoredDiscovered(ctx context.Context, minScore int) ([]*model.Job, error)

	FindByID(ctx context.Context, tx Tx, id string) (*model.Job, error)
	List(ctx context.Context, filter JobFilter) ([]*model.Job, error)

	// Update persists the given job's mutable fields (status, scores,
	// timestamps). Single-row upsert keyed by id.
	Update(ctx context.Context, tx Tx, job *model.Job) error

	// MarkExpired flips discovered/ready jobs discovered before cutoff to
	// expired and returns how many rows changed.
	MarkExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
