// File: internal/progress/state.go
package progress

import "time"

type Step string

const (
	StepIdle       Step = "idle"
	StepCrawling   Step = "crawling"
	StepImporting  Step = "importing"
	StepScoring    Step = "scoring"
	StepProcessing Step = "processing"
	StepCompleted  Step = "completed"
	StepFailed     Step = "failed"
)

// SourceProgress holds the crawl counters for one source. Counters are
// scoped per source so concurrently running sources never clobber each
// other's numbers.
type SourceProgress struct {
	TermsProcessed     int    `json:"terms_processed"`
	TermsTotal         int    `json:"terms_total"`
	ListPagesProcessed int    `json:"list_pages_processed"`
	ListPagesTotal     int    `json:"list_pages_total"`
	JobCardsFound      int    `json:"job_cards_found"`
	JobPagesEnqueued   int    `json:"job_pages_enqueued"`
	JobPagesProcessed  int    `json:"job_pages_processed"`
	JobPagesSkipped    int    `json:"job_pages_skipped"`
	Detail             string `json:"detail,omitempty"`
}

// State is the single shared snapshot of what the running pipeline is doing.
// Ephemeral, never persisted.
type State struct {
	Step    Step   `json:"step"`
	Message string `json:"message,omitempty"`

	SourcesTotal     int                       `json:"sources_total"`
	SourcesCompleted int                       `json:"sources_completed"`
	CurrentSource    string                    `json:"current_source,omitempty"`
	Sources          map[string]SourceProgress `json:"sources,omitempty"`

	JobsDiscovered int    `json:"jobs_discovered"`
	JobsCreated    int    `json:"jobs_created"`
	JobsSkipped    int    `json:"jobs_skipped"`
	JobsScored     int    `json:"jobs_scored"`
	JobsProcessed  int    `json:"jobs_processed"`
	TotalToProcess int    `json:"total_to_process"`
	CurrentJob     string `json:"current_job,omitempty"`

	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Patch is a shallow merge over State: nil fields leave the previous value
// untouched. Sources entries merge key-wise.
type Patch struct {
	Step    *Step
	Message *string

	SourcesTotal     *int
	SourcesCompleted *int
	CurrentSource    *string
	Sources          map[string]SourcePatch

	JobsDiscovered *int
	JobsCreated    *int
	JobsSkipped    *int
	JobsScored     *int
	JobsProcessed  *int
	TotalToProcess *int
	CurrentJob     *string

	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// SourcePatch merges into one source's counters.
type SourcePatch struct {
	TermsProcessed     *int
	TermsTotal         *int
	ListPagesProcessed *int
	ListPagesTotal     *int
	JobCardsFound      *int
	JobPagesEnqueued   *int
	JobPagesProcessed  *int
	JobPagesSkipped    *int
	Detail             *string
}

func idleState() State {
	return State{Step: StepIdle, Sources: map[string]SourceProgress{}}
}

func (s State) clone() State {
	out := s
	out.Sources = make(map[string]SourceProgress, len(s.Sources))
	for k, v := range s.Sources {
		out.Sources[k] = v
	}
	return out
}

func (s *State) apply(p Patch) {
	if p.Step != nil {
		s.Step = *p.Step
	}
	if p.Message != nil {
		s.Message = *p.Message
	}
	if p.SourcesTotal != nil {
		s.SourcesTotal = *p.SourcesTotal
	}
	if p.SourcesCompleted != nil {
		s.SourcesCompleted = *p.SourcesCompleted
	}
	if p.CurrentSource != nil {
		s.CurrentSource = *p.CurrentSource
	}
	for id, sp := range p.Sources {
		cur := s.Sources[id]
		cur.apply(sp)
		s.Sources[id] = cur
	}
	if p.JobsDiscovered != nil {
		s.JobsDiscovered = *p.JobsDiscovered
	}
	if p.JobsCreated != nil {
		s.JobsCreated = *p.JobsCreated
	}
	if p.JobsSkipped != nil {
		s.JobsSkipped = *p.JobsSkipped
	}
	if p.JobsScored != nil {
		s.JobsScored = *p.JobsScored
	}
	if p.JobsProcessed != nil {
		s.JobsProcessed = *p.JobsProcessed
	}
	if p.TotalToProcess != nil {
		s.TotalToProcess = *p.TotalToProcess
	}
	if p.CurrentJob != nil {
		s.CurrentJob = *p.CurrentJob
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
	if p.StartedAt != nil {
		s.StartedAt = p.StartedAt
	}
	if p.CompletedAt != nil {
		s.CompletedAt = p.CompletedAt
	}
}

func (sp *SourceProgress) apply(p SourcePatch) {
	if p.TermsProcessed != nil {
		sp.TermsProcessed = *p.TermsProcessed
	}
	if p.TermsTotal != nil {
		sp.TermsTotal = *p.TermsTotal
	}
	if p.ListPagesProcessed != nil {
		sp.ListPagesProcessed = *p.ListPagesProcessed
	}
	if p.ListPagesTotal != nil {
		sp.ListPagesTotal = *p.ListPagesTotal
	}
	if p.JobCardsFound != nil {
		sp.JobCardsFound = *p.JobCardsFound
	}
	if p.JobPagesEnqueued != nil {
		sp.JobPagesEnqueued = *p.JobPagesEnqueued
	}
	if p.JobPagesProcessed != nil {
		sp.JobPagesProcessed = *p.JobPagesProcessed
	}
	if p.JobPagesSkipped != nil {
		sp.JobPagesSkipped = *p.JobPagesSkipped
	}
	if p.Detail != nil {
		sp.Detail = *p.Detail
	}
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
