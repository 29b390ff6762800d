package model

import "time"

type PipelineRunStatus string

const (
	PipelineRunStatusRunning   PipelineRunStatus = "running"
	PipelineRunStatusCompleted PipelineRunStatus = "completed"
	PipelineRunStatusFailed    PipelineRunStatus = "failed"
	PipelineRunStatusCancelled PipelineRunStatus = "cancelled"
)

// PipelineRun is one end-to-end pipeline invocation. Exactly one run may be
// in the running status at a time; the controller enforces that before
// creating a new row.
type PipelineRun struct {
	ID             string
	Status         PipelineRunStatus
	JobsDiscovered int
	JobsProcessed  int
	ErrorMessage   string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// RunOptions are the caller-supplied knobs for one run. Zero values fall
// back to configured defaults.
type RunOptions struct {
	TopN                int
	MinSuitabilityScore int
	Sources             []SourceID
	SearchTerms         []string
	Country             string
	Locations           []string
}
