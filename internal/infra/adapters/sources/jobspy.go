package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"jobpilot/internal/domain/model"
	"jobpilot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SourceAdapter = (*JobspyAdapter)(nil)

// JobspyAdapter bridges one job board through a jobspy extractor service.
// Each search term is a separate extraction request; term progress maps
// onto the per-source progress events.
type JobspyAdapter struct {
	id      model.SourceID
	site    string
	baseURL string
	client  *http.Client
}

func NewJobspyAdapter(id model.SourceID, site, baseURL string) *JobspyAdapter {
	return &JobspyAdapter{
		id:      id,
		site:    site,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

func (a *JobspyAdapter) ID() model.SourceID { return a.id }

func (a *JobspyAdapter) TermsTotal(opts adapter.SourceOptions) int {
	if len(opts.SearchTerms) == 0 {
		return 1
	}
	return len(opts.SearchTerms)
}

type scrapeRequest struct {
	SiteName                 []string `json:"site_name"`
	SearchTerm               string   `json:"search_term"`
	Location                 string   `json:"location,omitempty"`
	ResultsWanted            int      `json:"results_wanted,omitempty"`
	HoursOld                 int      `json:"hours_old,omitempty"`
	CountryIndeed            string   `json:"country_indeed,omitempty"`
	LinkedinFetchDescription bool     `json:"linkedin_fetch_description"`
}

type scrapeRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	JobURL      string `json:"job_url"`
	Description string `json:"description"`
}

func (a *JobspyAdapter) Run(ctx context.Context, opts adapter.SourceOptions, onProgress func(adapter.SourceProgressEvent)) adapter.SourceResult {
	terms := opts.SearchTerms
	if len(terms) == 0 {
		terms = []string{""}
	}
	emit := onProgress
	if emit == nil {
		emit = func(adapter.SourceProgressEvent) {}
	}

	var jobs []*model.Job
	for i, term := range terms {
		emit(adapter.TermStarted{Term: term, TermIndex: i, TermsTotal: len(terms)})

		records, err := a.scrape(ctx, term, opts)
		if err != nil {
			return adapter.SourceResult{Success: false, Err: fmt.Sprintf("term %q: %v", term, err)}
		}

		for _, rec := range records {
			if rec.JobURL == "" && rec.ID == "" {
				continue
			}
			jobs = append(jobs, &model.Job{
				Source:      a.id,
				ExternalID:  rec.ID,
				Title:       rec.Title,
				Company:     rec.Company,
				Location:    rec.Location,
				JobURL:      rec.JobURL,
				Description: rec.Description,
				Status:      model.JobStatusDiscovered,
			})
		}
		emit(adapter.TermCompleted{Term: term, JobsFound: len(records)})
	}
	return adapter.SourceResult{Success: true, Jobs: jobs}
}

func (a *JobspyAdapter) scrape(ctx context.Context, term string, opts adapter.SourceOptions) ([]scrapeRecord, error) {
	location := ""
	if len(opts.Locations) > 0 {
		location = opts.Locations[0]
	}
	body := scrapeRequest{
		SiteName:                 []string{a.site},
		SearchTerm:               term,
		Location:                 location,
		ResultsWanted:            opts.ResultsWanted,
		HoursOld:                 opts.HoursOld,
		CountryIndeed:            opts.Country,
		LinkedinFetchDescription: true,
	}

	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/scrape", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extractor http %d", resp.StatusCode)
	}

	var records []scrapeRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}
	return records, nil
}
