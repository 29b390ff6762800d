package usecase

import (
	"context"
	"sync"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/domain/ports/repository"
)

// ---- in-memory fakes shared by the usecase tests ----

type fakeSource struct {
	id         model.SourceID
	terms      int
	result     adapter.SourceResult
	delay      time.Duration
	panicWith  any
	events     []adapter.SourceProgressEvent
	mu         sync.Mutex
	runCount   int
	lastOpts   adapter.SourceOptions
	blockUntil chan struct{}
}

func (f *fakeSource) ID() model.SourceID                   { return f.id }
func (f *fakeSource) TermsTotal(adapter.SourceOptions) int { return f.terms }

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runCount
}

func (f *fakeSource) Run(ctx context.Context, opts adapter.SourceOptions, onProgress func(adapter.SourceProgressEvent)) adapter.SourceResult {
	f.mu.Lock()
	f.runCount++
	f.lastOpts = opts
	f.mu.Unlock()
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.blockUntil != nil {
		<-f.blockUntil
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if onProgress != nil {
		for _, ev := range f.events {
			onProgress(ev)
		}
	}
	return f.result
}

type fakeRegistry struct {
	sources map[model.SourceID]adapter.SourceAdapter
}

func newFakeRegistry(sources ...adapter.SourceAdapter) *fakeRegistry {
	r := &fakeRegistry{sources: map[model.SourceID]adapter.SourceAdapter{}}
	for _, s := range sources {
		r.sources[s.ID()] = s
	}
	return r
}

func (r *fakeRegistry) Get(id model.SourceID) (adapter.SourceAdapter, bool) {
	s, ok := r.sources[id]
	return s, ok
}

type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Job

	errUpdate error
}

func newMemJobRepo(jobs ...*model.Job) *memJobRepo {
	r := &memJobRepo{byID: map[string]*model.Job{}}
	for _, j := range jobs {
		cp := *j
		r.byID[j.ID] = &cp
	}
	return r
}

func (m *memJobRepo) AllDedupKeys(ctx context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := map[string]struct{}{}
	for _, j := range m.byID {
		keys[j.DedupKey()] = struct{}{}
	}
	return keys, nil
}

func (m *memJobRepo) BulkCreate(ctx context.Context, jobs []*model.Job) (repository.BulkCreateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res repository.BulkCreateResult
	for _, j := range jobs {
		dup := false
		for _, have := range m.byID {
			if have.DedupKey() == j.DedupKey() {
				dup = true
				break
			}
		}
		if dup {
			res.Skipped++
			continue
		}
		cp := *j
		if cp.ID == "" {
			cp.ID = cp.DedupKey()
		}
		if cp.Status == "" {
			cp.Status = model.JobStatusDiscovered
		}
		if cp.DiscoveredAt.IsZero() {
			cp.DiscoveredAt = time.Now()
		}
		m.byID[cp.ID] = &cp
		res.Created++
	}
	return res, nil
}

func (m *memJobRepo) Discovered(ctx context.Context) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if j.Status == model.JobStatusDiscovered {
			out = append(out, j)
		}
	}
	sortJobsByDiscovery(out)
	return out, nil
}

func (m *memJobRepo) ScoredDiscovered(ctx context.Context, minScore int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if j.Status == model.JobStatusDiscovered && j.SuitabilityScore != nil && *j.SuitabilityScore >= minScore {
			out = append(out, j)
		}
	}
	sortJobsByDiscovery(out)
	return out, nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) List(ctx context.Context, filter repository.JobFilter) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.byID {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.Source != "" && j.Source != filter.Source {
			continue
		}
		out = append(out, j)
	}
	sortJobsByDiscovery(out)
	return out, nil
}

func (m *memJobRepo) Update(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errUpdate != nil {
		return m.errUpdate
	}
	if _, ok := m.byID[job.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *job
	m.byID[job.ID] = &cp
	return nil
}

func (m *memJobRepo) MarkExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.byID {
		if (j.Status == model.JobStatusDiscovered || j.Status == model.JobStatusReady) && j.DiscoveredAt.Before(cutoff) {
			j.Status = model.JobStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *memJobRepo) get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func sortJobsByDiscovery(jobs []*model.Job) {
	for i := 1; i < len(jobs); i++ {
		for k := i; k > 0 && jobs[k].DiscoveredAt.Before(jobs[k-1].DiscoveredAt); k-- {
			jobs[k], jobs[k-1] = jobs[k-1], jobs[k]
		}
	}
}

type memRunRepo struct {
	mu   sync.Mutex
	runs []*model.PipelineRun
}

func (m *memRunRepo) CreateRunning(ctx context.Context) (*model.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Status == model.PipelineRunStatusRunning {
			return nil, domain.ErrPipelineAlreadyRunning
		}
	}
	run := &model.PipelineRun{
		ID:        "run-" + time.Now().Format("150405.000000"),
		Status:    model.PipelineRunStatusRunning,
		StartedAt: time.Now(),
	}
	m.runs = append(m.runs, run)
	return run, nil
}

func (m *memRunRepo) Finish(ctx context.Context, run *model.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.runs {
		if r.ID == run.ID {
			cp := *run
			now := time.Now()
			cp.CompletedAt = &now
			m.runs[i] = &cp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memRunRepo) FindRunning(ctx context.Context) (*model.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.Status == model.PipelineRunStatusRunning {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRunRepo) FindByID(ctx context.Context, id string) (*model.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memRunRepo) List(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.PipelineRun, len(m.runs))
	copy(out, m.runs)
	return out, nil
}

func (m *memRunRepo) last() *model.PipelineRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil
	}
	return m.runs[len(m.runs)-1]
}

type fakeScorer struct {
	mu     sync.Mutex
	calls  []string
	score  int
	reason string
	err    error
}

func (f *fakeScorer) Score(ctx context.Context, job *model.Job, profile adapter.Profile) (adapter.Score, error) {
	f.mu.Lock()
	f.calls = append(f.calls, job.ID)
	f.mu.Unlock()
	if f.err != nil {
		return adapter.Score{}, f.err
	}
	return adapter.Score{Value: f.score, Reason: f.reason}, nil
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSponsors struct{}

func (fakeSponsors) Search(ctx context.Context, employer string) ([]adapter.SponsorMatch, error) {
	return []adapter.SponsorMatch{{Name: employer, Route: "Skilled Worker"}}, nil
}

func (fakeSponsors) Summarize(matches []adapter.SponsorMatch) adapter.SponsorSummary {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Name)
	}
	score := 0
	if len(matches) > 0 {
		score = 100
	}
	return adapter.SponsorSummary{SponsorMatchScore: score, SponsorMatchNames: names}
}

type fakeTailor struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (f *fakeTailor) Generate(ctx context.Context, job *model.Job, profile adapter.Profile) error {
	f.mu.Lock()
	f.calls = append(f.calls, job.ID)
	f.mu.Unlock()
	if f.failFor[job.ID] {
		return domain.ErrInvalidArgument
	}
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []*model.PipelineRun
	failed    []string
}

func (f *fakeNotifier) RunCompleted(ctx context.Context, run *model.PipelineRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, run)
	return nil
}

func (f *fakeNotifier) RunFailed(ctx context.Context, run *model.PipelineRun, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, errMsg)
	return nil
}
