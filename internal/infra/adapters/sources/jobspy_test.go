package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

func TestJobspyAdapterRunsOneRequestPerTerm(t *testing.T) {
	var requests []scrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req scrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		records := []scrapeRecord{
			{ID: req.SearchTerm + "-1", Title: "Engineer", Company: "Acme", JobURL: "https://jobs/" + req.SearchTerm},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}))
	defer srv.Close()

	a := NewJobspyAdapter(model.SourceLinkedIn, "linkedin", srv.URL)

	var events []adapter.SourceProgressEvent
	res := a.Run(context.Background(), adapter.SourceOptions{
		SearchTerms:   []string{"golang", "backend"},
		Country:       "united kingdom",
		Locations:     []string{"London"},
		ResultsWanted: 50,
		HoursOld:      72,
	}, func(ev adapter.SourceProgressEvent) { events = append(events, ev) })

	require.True(t, res.Success)
	require.Len(t, res.Jobs, 2)
	require.Equal(t, model.SourceLinkedIn, res.Jobs[0].Source)
	require.Equal(t, "golang-1", res.Jobs[0].ExternalID)
	require.Equal(t, model.JobStatusDiscovered, res.Jobs[0].Status)

	require.Len(t, requests, 2)
	require.Equal(t, []string{"linkedin"}, requests[0].SiteName)
	require.Equal(t, "golang", requests[0].SearchTerm)
	require.Equal(t, "London", requests[0].Location)
	require.Equal(t, "united kingdom", requests[0].CountryIndeed)
	require.Equal(t, 50, requests[0].ResultsWanted)
	require.Equal(t, 72, requests[0].HoursOld)

	require.Len(t, events, 4, "TermStarted and TermCompleted per term")
	started, ok := events[0].(adapter.TermStarted)
	require.True(t, ok)
	require.Equal(t, "golang", started.Term)
	require.Equal(t, 2, started.TermsTotal)
	completed, ok := events[1].(adapter.TermCompleted)
	require.True(t, ok)
	require.Equal(t, 1, completed.JobsFound)
}

func TestJobspyAdapterSkipsRecordsWithoutIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]scrapeRecord{
			{Title: "No identity"},
			{ID: "x-1", Title: "Kept", JobURL: "https://jobs/1"},
		})
	}))
	defer srv.Close()

	a := NewJobspyAdapter(model.SourceIndeed, "indeed", srv.URL)
	res := a.Run(context.Background(), adapter.SourceOptions{SearchTerms: []string{"go"}}, nil)

	require.True(t, res.Success)
	require.Len(t, res.Jobs, 1)
	require.Equal(t, "Kept", res.Jobs[0].Title)
}

func TestJobspyAdapterFailsOnExtractorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewJobspyAdapter(model.SourceLinkedIn, "linkedin", srv.URL)
	res := a.Run(context.Background(), adapter.SourceOptions{SearchTerms: []string{"go"}}, nil)

	require.False(t, res.Success)
	require.Contains(t, res.Err, "http 500")
	require.Contains(t, res.Err, `term "go"`)
}

func TestJobspyAdapterHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewJobspyAdapter(model.SourceLinkedIn, "linkedin", srv.URL)
	res := a.Run(ctx, adapter.SourceOptions{SearchTerms: []string{"go"}}, nil)

	require.False(t, res.Success)
	require.NotEmpty(t, res.Err)
}

func TestRegistryLookup(t *testing.T) {
	lk := NewJobspyAdapter(model.SourceLinkedIn, "linkedin", "http://extractor")
	in := NewJobspyAdapter(model.SourceIndeed, "indeed", "http://extractor")
	reg := NewRegistry(lk, in)

	got, ok := reg.Get(model.SourceLinkedIn)
	require.True(t, ok)
	require.Equal(t, model.SourceLinkedIn, got.ID())

	_, ok = reg.Get(model.SourceGradcracker)
	require.False(t, ok)

	require.Equal(t, []model.SourceID{model.SourceLinkedIn, model.SourceIndeed}, reg.IDs())
}
