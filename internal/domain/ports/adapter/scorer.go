package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// Profile is the candidate profile scoring and tailoring are grounded on.
type Profile struct {
	Summary    string
	Skills     []string
	Experience string
	TargetRole string
}

// Score is a suitability verdict for one job, 0-100.
type Score struct {
	Value  int
	Reason string
}

// Scorer judges how well a job posting fits the profile.
type Scorer interface {
	Score(ctx context.Context, job *model.Job, profile Profile) (Score, error)
}

// Tailor drives the downstream document generation pipeline for a selected
// job (summary generation, resume rendering). Opaque to the pipeline core.
type Tailor interface {
	Generate(ctx context.Context, job *model.Job, profile Profile) error
}
