// File: internal/usecase/discovery_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/infra/metrics"
	"jobpilot/internal/infra/worker"
	"jobpilot/internal/progress"
)

// Compile-time check
var _ DiscoveryUseCase = (*discoveryUC)(nil)

// SourceRegistry resolves a source id to its adapter.
type SourceRegistry interface {
	Get(id model.SourceID) (adapter.SourceAdapter, bool)
}

// SearchDefaults fill in run options the caller left unset.
type SearchDefaults struct {
	SearchTerms   []string
	Country       string
	Locations     []string
	Sources       []model.SourceID
	ResultsWanted int
	HoursOld      int
}

// DiscoveryResult aggregates every source's output for one run.
type DiscoveryResult struct {
	Jobs         []*model.Job
	SourceErrors []string
}

type DiscoveryUseCase interface {
	// Discover fans out to all compatible sources and collects new
	// postings. Per-source failures land in SourceErrors; the returned
	// error is non-nil only for configuration errors or total failure.
	Discover(ctx context.Context, opts model.RunOptions, shouldCancel func() bool) (DiscoveryResult, error)
}

type discoveryUC struct {
	registry      SourceRegistry
	broadcaster   *progress.Broadcaster
	defaults      SearchDefaults
	concurrency   int
	sourceTimeout time.Duration
	log           *zerolog.Logger
}

// NewDiscoveryUseCase builds the orchestrator. sourceTimeout bounds each
// adapter call; zero means wait indefinitely on a hung source.
func NewDiscoveryUseCase(
	registry SourceRegistry,
	broadcaster *progress.Broadcaster,
	defaults SearchDefaults,
	concurrency int,
	sourceTimeout time.Duration,
	logger *zerolog.Logger,
) *discoveryUC {
	if concurrency <= 0 {
		concurrency = worker.DefaultConcurrency
	}
	l := logger.With().Str("component", "Discovery").Logger()
	return &discoveryUC{
		registry:      registry,
		broadcaster:   broadcaster,
		defaults:      defaults,
		concurrency:   concurrency,
		sourceTimeout: sourceTimeout,
		log:           &l,
	}
}

func (d *discoveryUC) Discover(ctx context.Context, opts model.RunOptions, shouldCancel func() bool) (DiscoveryResult, error) {
	resolved := d.resolve(opts)
	callerRequested := len(opts.Sources) > 0

	requested := resolved.Sources
	compatible := model.CompatibleSources(requested, resolved.Country)
	if callerRequested && len(compatible) == 0 {
		return DiscoveryResult{}, fmt.Errorf("no compatible sources for selected country: %s", titleCase(resolved.Country))
	}
	if len(compatible) == 0 {
		// Nothing to crawl is a valid (empty) run.
		return DiscoveryResult{}, nil
	}
	if skipped := len(requested) - len(compatible); skipped > 0 {
		d.log.Warn().Int("skipped", skipped).Str("country", resolved.Country).Msg("sources incompatible with country")
	}

	if shouldCancel != nil && shouldCancel() {
		d.log.Info().Msg("discovery cancelled before fan-out")
		return DiscoveryResult{}, nil
	}

	srcOpts := adapter.SourceOptions{
		SearchTerms:   resolved.SearchTerms,
		Country:       resolved.Country,
		Locations:     resolved.Locations,
		ResultsWanted: d.defaults.ResultsWanted,
		HoursOld:      d.defaults.HoursOld,
	}

	d.broadcaster.StartCrawling(len(compatible))

	tasks := make([]worker.Task[adapter.SourceResult], 0, len(compatible))
	for _, id := range compatible {
		tasks = append(tasks, d.sourceTask(id, srcOpts))
	}

	var completed int64
	results := worker.RunAll(ctx, tasks, worker.Options[adapter.SourceResult]{
		Concurrency: d.concurrency,
		ShouldStop:  shouldCancel,
		OnTaskStarted: func(i int) {
			id := compatible[i]
			src, ok := d.registry.Get(id)
			terms := 0
			if ok {
				terms = src.TermsTotal(srcOpts)
			}
			d.broadcaster.SourceStarted(string(id), terms)
		},
		OnTaskSettled: func(i int, res adapter.SourceResult) {
			done := int(atomic.AddInt64(&completed, 1))
			d.broadcaster.SourceCompleted(string(compatible[i]), done, len(compatible))
		},
		Recover: func(i int, v any) adapter.SourceResult {
			d.log.Error().Str("source", string(compatible[i])).Str("panic", worker.PanicMessage(v)).Msg("source adapter panicked")
			return adapter.SourceResult{Success: false, Err: "panic: " + worker.PanicMessage(v)}
		},
	})

	var out DiscoveryResult
	for i, res := range results {
		id := compatible[i]
		if !res.Success && res.Err == "" {
			// Zero-value result: task was never admitted (cancelled).
			continue
		}
		metrics.IncSourceResult(string(id), res.Success)
		if res.Success {
			// Success with zero jobs is not an error. Cross-source URL
			// duplicates pass through; import owns dedup.
			out.Jobs = append(out.Jobs, res.Jobs...)
			d.log.Info().Str("source", string(id)).Int("jobs", len(res.Jobs)).Msg("source finished")
			continue
		}
		out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %s", id, res.Err))
		d.log.Warn().Str("source", string(id)).Str("error", res.Err).Msg("source failed")
	}

	if len(out.Jobs) == 0 && len(out.SourceErrors) > 0 {
		return out, fmt.Errorf("all sources failed: %s", strings.Join(out.SourceErrors, "; "))
	}
	return out, nil
}

// sourceTask wraps one adapter call, translating its progress callbacks
// into per-source counter patches. Adapter failures become the task's
// result, never an error crossing the pool boundary.
func (d *discoveryUC) sourceTask(id model.SourceID, opts adapter.SourceOptions) worker.Task[adapter.SourceResult] {
	return func(ctx context.Context) adapter.SourceResult {
		src, ok := d.registry.Get(id)
		if !ok {
			return adapter.SourceResult{Success: false, Err: "no adapter registered"}
		}

		if d.sourceTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.sourceTimeout)
			defer cancel()
		}

		// Local counters: progress events carry deltas/indexes, the
		// snapshot wants absolute values.
		var cur progress.SourceProgress
		onProgress := func(ev adapter.SourceProgressEvent) {
			sp := translateEvent(ev, &cur)
			d.broadcaster.CrawlingUpdate(string(id), sp)
		}

		res := src.Run(ctx, opts, onProgress)
		if !res.Success && res.Err == "" {
			res.Err = "source returned failure without an error message"
		}
		if d.sourceTimeout > 0 && ctx.Err() == context.DeadlineExceeded && !res.Success {
			res.Err = fmt.Sprintf("timed out after %s", d.sourceTimeout)
		}
		return res
	}
}

func translateEvent(ev adapter.SourceProgressEvent, cur *progress.SourceProgress) progress.SourcePatch {
	switch e := ev.(type) {
	case adapter.TermStarted:
		cur.TermsTotal = e.TermsTotal
		return progress.SourcePatch{
			TermsTotal: progress.Ptr(e.TermsTotal),
			Detail:     progress.Ptr(fmt.Sprintf("term %d/%d: %s", e.TermIndex+1, e.TermsTotal, e.Term)),
		}
	case adapter.TermCompleted:
		cur.TermsProcessed++
		cur.JobCardsFound += e.JobsFound
		return progress.SourcePatch{
			TermsProcessed: progress.Ptr(cur.TermsProcessed),
			JobCardsFound:  progress.Ptr(cur.JobCardsFound),
			Detail:         progress.Ptr(fmt.Sprintf("term %q found %d jobs", e.Term, e.JobsFound)),
		}
	case adapter.ListPageProcessed:
		cur.ListPagesProcessed = e.Page
		cur.ListPagesTotal = e.PagesTotal
		cur.JobCardsFound += e.CardsFound
		return progress.SourcePatch{
			ListPagesProcessed: progress.Ptr(e.Page),
			ListPagesTotal:     progress.Ptr(e.PagesTotal),
			JobCardsFound:      progress.Ptr(cur.JobCardsFound),
			Detail:             progress.Ptr(fmt.Sprintf("page %d/%d", e.Page, e.PagesTotal)),
		}
	case adapter.JobPageEnqueued:
		cur.JobPagesEnqueued++
		return progress.SourcePatch{JobPagesEnqueued: progress.Ptr(cur.JobPagesEnqueued)}
	case adapter.JobPageProcessed:
		cur.JobPagesProcessed++
		return progress.SourcePatch{JobPagesProcessed: progress.Ptr(cur.JobPagesProcessed)}
	case adapter.JobPageSkipped:
		cur.JobPagesSkipped++
		return progress.SourcePatch{
			JobPagesSkipped: progress.Ptr(cur.JobPagesSkipped),
			Detail:          progress.Ptr("skipped: " + e.Reason),
		}
	default:
		return progress.SourcePatch{}
	}
}

func (d *discoveryUC) resolve(opts model.RunOptions) model.RunOptions {
	out := opts
	if len(out.SearchTerms) == 0 {
		out.SearchTerms = d.defaults.SearchTerms
	}
	if out.Country == "" {
		out.Country = d.defaults.Country
	}
	if len(out.Locations) == 0 {
		out.Locations = d.defaults.Locations
	}
	if len(out.Sources) == 0 {
		out.Sources = d.defaults.Sources
		if len(out.Sources) == 0 {
			out.Sources = model.AllSources
		}
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
