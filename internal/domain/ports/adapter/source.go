package adapter

import (
	"context"

	"jobpilot/internal/domain/model"
)

// SourceOptions carry the resolved run configuration a source adapter needs.
type SourceOptions struct {
	SearchTerms   []string
	Country       string
	Locations     []string
	ResultsWanted int
	HoursOld      int
}

// SourceResult is a source adapter's terminal outcome. Adapter failures are
// reported through Err, never as a panic or a partially-filled Jobs slice.
type SourceResult struct {
	Success bool
	Jobs    []*model.Job
	Err     string
}

// SourceProgressEvent is the closed set of progress notifications a source
// adapter may emit. Term-based sources (board search APIs) emit the Term*
// events; page-based scrapers emit the *Page* events. The orchestrator
// translates them into canonical progress patches scoped to the source.
type SourceProgressEvent interface {
	sourceProgressEvent()
}

type TermStarted struct {
	Term       string
	TermIndex  int
	TermsTotal int
}

type TermCompleted struct {
	Term      string
	JobsFound int
}

type ListPageProcessed struct {
	Page       int
	PagesTotal int
	CardsFound int
}

type JobPageEnqueued struct{ URL string }

type JobPageProcessed struct{ URL string }

type JobPageSkipped struct {
	URL    string
	Reason string
}

func (TermStarted) sourceProgressEvent()       {}
func (TermCompleted) sourceProgressEvent()     {}
func (ListPageProcessed) sourceProgressEvent() {}
func (JobPageEnqueued) sourceProgressEvent()   {}
func (JobPageProcessed) sourceProgressEvent()  {}
func (JobPageSkipped) sourceProgressEvent()    {}

// SourceAdapter is one external job-posting provider. Run blocks until the
// crawl finishes; onProgress may be nil. Implementations must not panic
// across this boundary.
type SourceAdapter interface {
	ID() model.SourceID
	// TermsTotal reports how many search terms the adapter will process for
	// the given options, or 0 when the source is page-based.
	TermsTotal(opts SourceOptions) int
	Run(ctx context.Context, opts SourceOptions, onProgress func(SourceProgressEvent)) SourceResult
}
