package model

import "time"

type JobStatus string

const (
	JobStatusDiscovered JobStatus = "discovered"
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusApplied    JobStatus = "applied"
	JobStatusSkipped    JobStatus = "skipped"
	JobStatusExpired    JobStatus = "expired"
)

// validTransitions lists the status changes the pipeline and bulk actions
// are allowed to make. User-driven transitions (applied, skipped) are
// included so bulk actions share the same table.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusDiscovered: {JobStatusProcessing, JobStatusReady, JobStatusSkipped, JobStatusExpired},
	JobStatusProcessing: {JobStatusReady, JobStatusDiscovered, JobStatusSkipped, JobStatusExpired},
	JobStatusReady:      {JobStatusApplied, JobStatusDiscovered, JobStatusSkipped, JobStatusExpired},
}

// CanTransition reports whether moving from to next is a legal status change.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s == next {
		return true
	}
	for _, t := range validTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Job struct {
	ID                string
	Source            SourceID
	ExternalID        string
	Title             string
	Company           string
	Location          string
	JobURL            string
	Description       string
	Status            JobStatus
	SuitabilityScore  *int
	SuitabilityReason string
	SponsorMatchScore *int
	SponsorMatchNames []string
	DiscoveredAt      time.Time
	ProcessedAt       *time.Time
	AppliedAt         *time.Time
}

// HasCachedScore reports whether the job already carries a numeric
// suitability score and does not need to be re-scored.
func (j *Job) HasCachedScore() bool {
	return j.SuitabilityScore != nil
}

// DedupKey is the identity used by import dedup: the source-specific
// external id when present, otherwise the job URL.
func (j *Job) DedupKey() string {
	if j.ExternalID != "" {
		return string(j.Source) + ":" + j.ExternalID
	}
	return j.JobURL
}
