// File: internal/usecase/pipeline_uc.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/infra/metrics"
	"jobpilot/internal/progress"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// RunLocker guards the cross-process "one running pipeline" invariant.
// The Redis locker implements it; tests pass nil to rely on the DB check
// alone.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// PipelineDefaults fill in run options the trigger left unset.
type PipelineDefaults struct {
	TopN                int
	MinSuitabilityScore int
}

type PipelineUseCase interface {
	// StartRun validates, records a running PipelineRun and executes the
	// pipeline in the background. Returns domain.ErrPipelineAlreadyRunning
	// when a run is already in flight.
	StartRun(ctx context.Context, opts model.RunOptions) (*model.PipelineRun, error)

	// Cancel requests cooperative cancellation of the current run.
	// Returns domain.ErrCancelAlreadyRequested when cancellation was
	// already signalled and domain.ErrNotFound when nothing is running.
	Cancel(ctx context.Context) error

	// GetRun returns one run by id, domain.ErrNotFound when unknown.
	GetRun(ctx context.Context, id string) (*model.PipelineRun, error)

	ListRuns(ctx context.Context, limit int) ([]*model.PipelineRun, error)
}

const runLockKey = "jobpilot:pipeline:run"

type pipelineUC struct {
	discovery   DiscoveryUseCase
	jobs        repository.JobRepository
	runs        repository.PipelineRunRepository
	scorer      adapter.Scorer
	sponsors    adapter.SponsorMatcher
	tailor      adapter.Tailor
	notifier    adapter.Notifier
	broadcaster *progress.Broadcaster
	locker      RunLocker
	profile     adapter.Profile
	defaults    PipelineDefaults
	lockTTL     time.Duration
	log         *zerolog.Logger

	mu        sync.Mutex
	running   bool
	cancelled atomic.Bool

	// wg tracks the background run goroutine; Wait is used by shutdown and
	// tests.
	wg sync.WaitGroup
}

func NewPipelineUseCase(
	discovery DiscoveryUseCase,
	jobs repository.JobRepository,
	runs repository.PipelineRunRepository,
	scorer adapter.Scorer,
	sponsors adapter.SponsorMatcher,
	tailor adapter.Tailor,
	notifier adapter.Notifier,
	broadcaster *progress.Broadcaster,
	locker RunLocker,
	profile adapter.Profile,
	defaults PipelineDefaults,
	logger *zerolog.Logger,
) *pipelineUC {
	if defaults.TopN <= 0 {
		defaults.TopN = 5
	}
	if defaults.MinSuitabilityScore <= 0 {
		defaults.MinSuitabilityScore = 60
	}
	l := logger.With().Str("component", "Pipeline").Logger()
	return &pipelineUC{
		discovery:   discovery,
		jobs:        jobs,
		runs:        runs,
		scorer:      scorer,
		sponsors:    sponsors,
		tailor:      tailor,
		notifier:    notifier,
		broadcaster: broadcaster,
		locker:      locker,
		profile:     profile,
		defaults:    defaults,
		lockTTL:     2 * time.Hour,
		log:         &l,
	}
}

func (p *pipelineUC) StartRun(ctx context.Context, opts model.RunOptions) (*model.PipelineRun, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, domain.ErrPipelineAlreadyRunning
	}
	// Reset before the running flag is visible so a Cancel aimed at the
	// previous run cannot land on this one, and a Cancel issued after the
	// flag flips is never erased.
	p.cancelled.Store(false)
	p.running = true
	p.mu.Unlock()

	release := func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}

	// The partial unique index on running rows is the hard guarantee;
	// checking first turns another process's run into a clean rejection
	// instead of a constraint violation from CreateRunning.
	if existing, err := p.runs.FindRunning(ctx); err == nil && existing != nil {
		release()
		return nil, domain.ErrPipelineAlreadyRunning
	}

	var lockToken string
	if p.locker != nil {
		token, err := p.locker.TryLock(ctx, runLockKey, p.lockTTL)
		if err != nil {
			release()
			return nil, domain.ErrPipelineAlreadyRunning
		}
		lockToken = token
	}

	run, err := p.runs.CreateRunning(ctx)
	if err != nil {
		if p.locker != nil {
			_ = p.locker.Unlock(ctx, runLockKey, lockToken)
		}
		release()
		return nil, err
	}

	p.broadcaster.Reset()
	p.log.Info().Str("run_id", run.ID).Msg("pipeline run started")
	metrics.IncRunStarted()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer release()
		if p.locker != nil {
			defer func() { _ = p.locker.Unlock(context.Background(), runLockKey, lockToken) }()
		}
		// Detached from the trigger request's context: the run outlives it.
		p.execute(context.Background(), run, p.resolve(opts))
	}()

	return run, nil
}

func (p *pipelineUC) Cancel(ctx context.Context) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()
	if !running {
		return domain.ErrNotFound
	}
	if !p.cancelled.CompareAndSwap(false, true) {
		return domain.ErrCancelAlreadyRequested
	}
	p.log.Info().Msg("pipeline cancellation requested")
	return nil
}

func (p *pipelineUC) GetRun(ctx context.Context, id string) (*model.PipelineRun, error) {
	return p.runs.FindByID(ctx, id)
}

func (p *pipelineUC) ListRuns(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	return p.runs.List(ctx, limit)
}

// Wait blocks until the in-flight run finishes. Used during shutdown and by
// tests.
func (p *pipelineUC) Wait() { p.wg.Wait() }

func (p *pipelineUC) shouldCancel() bool { return p.cancelled.Load() }

// execute sequences discovery, import, scoring, selection and processing.
// Any unexpected error is caught here, persisted on the run and reflected
// in the terminal progress state.
func (p *pipelineUC) execute(ctx context.Context, run *model.PipelineRun, opts model.RunOptions) {
	err := p.runSteps(ctx, run, opts)

	switch {
	case err == nil && p.cancelled.Load():
		run.Status = model.PipelineRunStatusCancelled
		p.broadcaster.Failed("run cancelled")
	case err == nil:
		run.Status = model.PipelineRunStatusCompleted
		p.broadcaster.Complete(run.JobsDiscovered, run.JobsProcessed)
	default:
		run.Status = model.PipelineRunStatusFailed
		run.ErrorMessage = err.Error()
		p.broadcaster.Failed(err.Error())
	}

	if ferr := p.runs.Finish(ctx, run); ferr != nil {
		p.log.Error().Err(ferr).Str("run_id", run.ID).Msg("failed to persist run result")
	}
	metrics.IncRunFinished(string(run.Status))
	p.log.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("discovered", run.JobsDiscovered).
		Int("processed", run.JobsProcessed).
		Msg("pipeline run finished")

	p.notify(ctx, run)
}

func (p *pipelineUC) runSteps(ctx context.Context, run *model.PipelineRun, opts model.RunOptions) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("pipeline panic: %v", v)
		}
	}()

	// Discovery. Total failure is fatal to the run.
	disc, err := p.discovery.Discover(ctx, opts, p.shouldCancel)
	if err != nil {
		return err
	}
	run.JobsDiscovered = len(disc.Jobs)
	metrics.AddJobsDiscovered(len(disc.Jobs))
	for _, msg := range disc.SourceErrors {
		p.log.Warn().Str("source_error", msg).Msg("partial discovery failure")
	}
	if p.cancelled.Load() {
		return nil
	}

	// Import with dedup.
	created, skipped, err := p.importJobs(ctx, disc.Jobs)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	p.broadcaster.ImportComplete(created, skipped)
	if p.cancelled.Load() {
		return nil
	}

	// Scoring.
	if err := p.scoreBacklog(ctx); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if p.cancelled.Load() {
		return nil
	}

	// Selection and processing.
	selected, err := p.selectTop(ctx, opts)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	run.JobsProcessed = p.processSelected(ctx, selected)
	return nil
}

// importJobs deduplicates the discovered batch against the store (and
// within itself) before bulk-inserting the remainder.
func (p *pipelineUC) importJobs(ctx context.Context, jobs []*model.Job) (created, skipped int, err error) {
	p.broadcaster.CrawlingComplete(len(jobs))
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	existing, err := p.jobs.AllDedupKeys(ctx)
	if err != nil {
		return 0, 0, err
	}

	fresh := make([]*model.Job, 0, len(jobs))
	for _, j := range jobs {
		key := j.DedupKey()
		if _, dup := existing[key]; dup {
			skipped++
			continue
		}
		existing[key] = struct{}{}
		fresh = append(fresh, j)
	}

	res, err := p.jobs.BulkCreate(ctx, fresh)
	if err != nil {
		return 0, 0, err
	}
	return res.Created, skipped + res.Skipped, nil
}

// scoreBacklog scores every discovered job that lacks a cached score. Jobs
// already carrying a score are skipped but still count toward the total, so
// resuming a partially-scored backlog is cheap and idempotent. Per-job
// failures are warnings, never fatal.
func (p *pipelineUC) scoreBacklog(ctx context.Context) error {
	backlog, err := p.jobs.Discovered(ctx)
	if err != nil {
		return err
	}

	total := len(backlog)
	scored := 0
	for _, job := range backlog {
		if p.cancelled.Load() {
			return nil
		}
		if job.HasCachedScore() {
			scored++
			p.broadcaster.ScoringProgress(scored, total, jobSummary(job))
			continue
		}

		start := time.Now()
		score, serr := p.scorer.Score(ctx, job, p.profile)
		metrics.ObserveScoring(time.Since(start), serr == nil)
		if serr != nil {
			p.log.Warn().Err(serr).Str("job_id", job.ID).Msg("scoring failed, skipping job")
			scored++
			p.broadcaster.ScoringProgress(scored, total, jobSummary(job))
			continue
		}
		job.SuitabilityScore = &score.Value
		job.SuitabilityReason = score.Reason

		p.matchSponsor(ctx, job)

		if uerr := p.jobs.Update(ctx, nil, job); uerr != nil {
			p.log.Warn().Err(uerr).Str("job_id", job.ID).Msg("failed to persist score")
		}
		scored++
		p.broadcaster.ScoringProgress(scored, total, jobSummary(job))
	}
	p.broadcaster.ScoringComplete(scored)
	return nil
}

func (p *pipelineUC) matchSponsor(ctx context.Context, job *model.Job) {
	if p.sponsors == nil || job.Company == "" {
		return
	}
	matches, err := p.sponsors.Search(ctx, job.Company)
	if err != nil {
		p.log.Warn().Err(err).Str("company", job.Company).Msg("sponsor lookup failed")
		return
	}
	summary := p.sponsors.Summarize(matches)
	job.SponsorMatchScore = &summary.SponsorMatchScore
	job.SponsorMatchNames = summary.SponsorMatchNames
}

// selectTop picks up to TopN scored jobs at or above the minimum score,
// best score first, ties broken by earliest discovery.
func (p *pipelineUC) selectTop(ctx context.Context, opts model.RunOptions) ([]*model.Job, error) {
	candidates, err := p.jobs.ScoredDiscovered(ctx, opts.MinSuitabilityScore)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := *candidates[i].SuitabilityScore, *candidates[j].SuitabilityScore
		if si != sj {
			return si > sj
		}
		return candidates[i].DiscoveredAt.Before(candidates[j].DiscoveredAt)
	})
	if len(candidates) > opts.TopN {
		candidates = candidates[:opts.TopN]
	}
	return candidates, nil
}

// processSelected drives tailoring for each selected job. Success advances
// the job to ready; failure reverts to discovered and is recorded as a
// warning only.
func (p *pipelineUC) processSelected(ctx context.Context, selected []*model.Job) int {
	total := len(selected)
	processed := 0
	for i, job := range selected {
		if p.cancelled.Load() {
			return processed
		}
		p.broadcaster.ProcessingProgress(i, total, jobSummary(job))

		job.Status = model.JobStatusProcessing
		if err := p.jobs.Update(ctx, nil, job); err != nil {
			p.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to mark job processing")
			continue
		}

		if err := p.tailor.Generate(ctx, job, p.profile); err != nil {
			p.log.Warn().Err(err).Str("job_id", job.ID).Msg("processing failed, job stays in backlog")
			job.Status = model.JobStatusDiscovered
			_ = p.jobs.Update(ctx, nil, job)
			continue
		}

		now := time.Now()
		job.Status = model.JobStatusReady
		job.ProcessedAt = &now
		if err := p.jobs.Update(ctx, nil, job); err != nil {
			p.log.Warn().Err(err).Str("job_id", job.ID).Msg("failed to mark job ready")
			continue
		}
		processed++
		metrics.IncJobProcessed()
		p.broadcaster.JobComplete(processed, total)
	}
	return processed
}

func (p *pipelineUC) notify(ctx context.Context, run *model.PipelineRun) {
	if p.notifier == nil {
		return
	}
	var err error
	switch run.Status {
	case model.PipelineRunStatusFailed:
		err = p.notifier.RunFailed(ctx, run, run.ErrorMessage)
	case model.PipelineRunStatusCompleted:
		err = p.notifier.RunCompleted(ctx, run)
	default:
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Str("run_id", run.ID).Msg("run notification failed")
	}
}

func (p *pipelineUC) resolve(opts model.RunOptions) model.RunOptions {
	if opts.TopN <= 0 {
		opts.TopN = p.defaults.TopN
	}
	if opts.MinSuitabilityScore <= 0 {
		opts.MinSuitabilityScore = p.defaults.MinSuitabilityScore
	}
	return opts
}

func jobSummary(j *model.Job) string {
	if j.Company == "" {
		return j.Title
	}
	return j.Title + " at " + j.Company
}
