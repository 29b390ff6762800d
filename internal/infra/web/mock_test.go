// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/repository"
	"jobpilot/internal/usecase"
)

var errFake = errors.New("backend unavailable")

type fakePipeline struct {
	mu        sync.Mutex
	startErr  error
	cancelErr error
	run       *model.PipelineRun
	runs      []*model.PipelineRun
	lastOpts  model.RunOptions
	listLimit int
}

func (f *fakePipeline) StartRun(_ context.Context, opts model.RunOptions) (*model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.run, nil
}

func (f *fakePipeline) Cancel(context.Context) error { return f.cancelErr }

func (f *fakePipeline) GetRun(_ context.Context, id string) (*model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakePipeline) ListRuns(_ context.Context, limit int) ([]*model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listLimit = limit
	return f.runs, nil
}

type fakeBulk struct {
	events []usecase.BulkEvent
	err    error

	mu         sync.Mutex
	lastAction usecase.BulkAction
	lastIDs    []string
}

func (f *fakeBulk) Execute(_ context.Context, action usecase.BulkAction, ids []string, emit func(usecase.BulkEvent)) error {
	f.mu.Lock()
	f.lastAction = action
	f.lastIDs = ids
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.events {
		emit(ev)
	}
	return nil
}

type fakeJobRepo struct {
	mu         sync.Mutex
	jobs       []*model.Job
	listErr    error
	lastFilter repository.JobFilter
}

func (f *fakeJobRepo) AllDedupKeys(context.Context) (map[string]struct{}, error) { return nil, nil }
func (f *fakeJobRepo) BulkCreate(context.Context, []*model.Job) (repository.BulkCreateResult, error) {
	return repository.BulkCreateResult{}, nil
}
func (f *fakeJobRepo) Discovered(context.Context) ([]*model.Job, error)           { return nil, nil }
func (f *fakeJobRepo) ScoredDiscovered(context.Context, int) ([]*model.Job, error) { return nil, nil }
func (f *fakeJobRepo) FindByID(context.Context, repository.Tx, string) (*model.Job, error) {
	return nil, nil
}
func (f *fakeJobRepo) Update(context.Context, repository.Tx, *model.Job) error { return nil }
func (f *fakeJobRepo) MarkExpired(context.Context, time.Time) (int64, error)   { return 0, nil }

func (f *fakeJobRepo) List(_ context.Context, filter repository.JobFilter) ([]*model.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.jobs, nil
}

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (f *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	f.calls++
	return f.allow, f.err
}
