package usecase

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
	"jobpilot/internal/progress"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newDiscovery(reg SourceRegistry, b *progress.Broadcaster, defaults SearchDefaults) *discoveryUC {
	if b == nil {
		b = progress.NewBroadcaster(testLogger())
	}
	if defaults.Country == "" {
		defaults.Country = "united kingdom"
	}
	if len(defaults.SearchTerms) == 0 {
		defaults.SearchTerms = []string{"software engineer"}
	}
	return NewDiscoveryUseCase(reg, b, defaults, 3, 0, testLogger())
}

func jobFor(source model.SourceID, url string) *model.Job {
	return &model.Job{Source: source, JobURL: url, Title: "Engineer", Status: model.JobStatusDiscovered}
}

func TestDiscoverAggregatesAllSources(t *testing.T) {
	lk := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{
		Success: true,
		Jobs:    []*model.Job{jobFor(model.SourceLinkedIn, "https://l/1"), jobFor(model.SourceLinkedIn, "https://l/2")},
	}}
	in := &fakeSource{id: model.SourceIndeed, result: adapter.SourceResult{
		Success: true,
		Jobs:    []*model.Job{jobFor(model.SourceIndeed, "https://i/1")},
	}}

	d := newDiscovery(newFakeRegistry(lk, in), nil, SearchDefaults{})
	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn, model.SourceIndeed},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Jobs, 3)
	require.Empty(t, res.SourceErrors)
}

func TestDiscoverEmptySourceIsNotAnError(t *testing.T) {
	empty := &fakeSource{id: model.SourceGoogle, result: adapter.SourceResult{Success: true}}

	d := newDiscovery(newFakeRegistry(empty), nil, SearchDefaults{})
	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceGoogle},
	}, nil)

	require.NoError(t, err)
	require.Empty(t, res.Jobs)
	require.Empty(t, res.SourceErrors)
}

func TestDiscoverAllSourcesFailedIsFatal(t *testing.T) {
	a := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{Success: false, Err: "rate limited"}}
	b := &fakeSource{id: model.SourceIndeed, result: adapter.SourceResult{Success: false, Err: "layout changed"}}

	d := newDiscovery(newFakeRegistry(a, b), nil, SearchDefaults{})
	_, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn, model.SourceIndeed},
	}, nil)

	require.Error(t, err)
	require.Contains(t, err.Error(), "all sources failed")
	require.Contains(t, err.Error(), "linkedin: rate limited")
	require.Contains(t, err.Error(), "indeed: layout changed")
	require.Contains(t, err.Error(), "; ")
}

func TestDiscoverPartialFailureIsWarningOnly(t *testing.T) {
	ok := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{
		Success: true,
		Jobs:    []*model.Job{jobFor(model.SourceLinkedIn, "https://l/1")},
	}}
	bad := &fakeSource{id: model.SourceIndeed, result: adapter.SourceResult{Success: false, Err: "timeout"}}

	d := newDiscovery(newFakeRegistry(ok, bad), nil, SearchDefaults{})
	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn, model.SourceIndeed},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	require.Equal(t, []string{"indeed: timeout"}, res.SourceErrors)
}

func TestDiscoverCountryFiltering(t *testing.T) {
	grad := &fakeSource{id: model.SourceGradcracker, result: adapter.SourceResult{Success: true}}
	visa := &fakeSource{id: model.SourceUKVisaJobs, result: adapter.SourceResult{Success: true}}
	lk := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{
		Success: true, Jobs: []*model.Job{jobFor(model.SourceLinkedIn, "https://l/1")},
	}}
	d := newDiscovery(newFakeRegistry(grad, visa, lk), nil, SearchDefaults{})

	// all requested sources are UK-only: fail fast, nothing runs
	_, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceGradcracker, model.SourceUKVisaJobs},
		Country: "united states",
	}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no compatible sources for selected country: United States")
	require.Zero(t, grad.calls())
	require.Zero(t, visa.calls())

	// mixed request: only the compatible source runs
	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn, model.SourceGradcracker},
		Country: "united states",
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	require.Equal(t, 1, lk.calls())
	require.Zero(t, grad.calls())
}

func TestDiscoverCancelledBeforeFanOut(t *testing.T) {
	src := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{
		Success: true, Jobs: []*model.Job{jobFor(model.SourceLinkedIn, "https://l/1")},
	}}
	d := newDiscovery(newFakeRegistry(src), nil, SearchDefaults{})

	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn},
	}, func() bool { return true })

	require.NoError(t, err)
	require.Empty(t, res.Jobs)
	require.Empty(t, res.SourceErrors)
	require.Zero(t, src.calls(), "no adapter may be invoked after cancellation")
}

func TestDiscoverPanickingAdapterBecomesSourceError(t *testing.T) {
	boom := &fakeSource{id: model.SourceIndeed, panicWith: "selector missing"}
	ok := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{
		Success: true, Jobs: []*model.Job{jobFor(model.SourceLinkedIn, "https://l/1")},
	}}

	d := newDiscovery(newFakeRegistry(boom, ok), nil, SearchDefaults{})
	res, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceIndeed, model.SourceLinkedIn},
	}, nil)

	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	require.Len(t, res.SourceErrors, 1)
	require.Contains(t, res.SourceErrors[0], "indeed: panic")
}

func TestDiscoverTranslatesProgressEvents(t *testing.T) {
	src := &fakeSource{
		id:    model.SourceLinkedIn,
		terms: 2,
		events: []adapter.SourceProgressEvent{
			adapter.TermStarted{Term: "golang", TermIndex: 0, TermsTotal: 2},
			adapter.TermCompleted{Term: "golang", JobsFound: 4},
			adapter.TermStarted{Term: "backend", TermIndex: 1, TermsTotal: 2},
			adapter.TermCompleted{Term: "backend", JobsFound: 3},
		},
		result: adapter.SourceResult{Success: true},
	}

	b := progress.NewBroadcaster(testLogger())
	d := newDiscovery(newFakeRegistry(src), b, SearchDefaults{})
	_, err := d.Discover(context.Background(), model.RunOptions{
		Sources: []model.SourceID{model.SourceLinkedIn},
	}, nil)
	require.NoError(t, err)

	snap := b.Snapshot()
	sp := snap.Sources["linkedin"]
	require.Equal(t, 2, sp.TermsTotal)
	require.Equal(t, 2, sp.TermsProcessed)
	require.Equal(t, 7, sp.JobCardsFound)
	require.Equal(t, 1, snap.SourcesCompleted)
	require.Equal(t, 1, snap.SourcesTotal)
}

func TestDiscoverFallsBackToDefaults(t *testing.T) {
	src := &fakeSource{id: model.SourceLinkedIn, result: adapter.SourceResult{Success: true}}
	d := newDiscovery(newFakeRegistry(src), nil, SearchDefaults{
		SearchTerms: []string{"data engineer"},
		Country:     "united kingdom",
		Sources:     []model.SourceID{model.SourceLinkedIn},
	})

	_, err := d.Discover(context.Background(), model.RunOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, src.calls())
	require.Equal(t, []string{"data engineer"}, src.lastOpts.SearchTerms)
	require.Equal(t, "united kingdom", src.lastOpts.Country)
}
