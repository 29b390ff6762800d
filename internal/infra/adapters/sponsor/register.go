package sponsor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobpilot/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SponsorMatcher = (*RegisterClient)(nil)

const maxStoredNames = 5

// RegisterClient queries a licensed-sponsor register service by employer
// name.
type RegisterClient struct {
	baseURL string
	client  *http.Client
}

func NewRegisterClient(baseURL string) *RegisterClient {
	return &RegisterClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type registerRecord struct {
	Name  string `json:"name"`
	City  string `json:"city"`
	Route string `json:"route"`
}

func (c *RegisterClient) Search(ctx context.Context, employerName string) ([]adapter.SponsorMatch, error) {
	q := url.Values{"q": {employerName}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sponsor register http %d", resp.StatusCode)
	}

	var records []registerRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode sponsor response: %w", err)
	}

	matches := make([]adapter.SponsorMatch, 0, len(records))
	for _, r := range records {
		matches = append(matches, adapter.SponsorMatch{Name: r.Name, City: r.City, Route: r.Route})
	}
	return matches, nil
}

// Summarize condenses register hits into the stored fields. A single hit
// means the employer resolved unambiguously and scores 100; several hits
// score 80, no hit 0. Distinct normalized names are kept up to a cap.
func (c *RegisterClient) Summarize(matches []adapter.SponsorMatch) adapter.SponsorSummary {
	return Summarize(matches)
}

func Summarize(matches []adapter.SponsorMatch) adapter.SponsorSummary {
	if len(matches) == 0 {
		return adapter.SponsorSummary{}
	}

	seen := map[string]struct{}{}
	names := make([]string, 0, maxStoredNames)
	for _, m := range matches {
		key := normalizeName(m.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if len(names) < maxStoredNames {
			names = append(names, m.Name)
		}
	}

	score := 80
	if len(seen) == 1 {
		score = 100
	}
	return adapter.SponsorSummary{SponsorMatchScore: score, SponsorMatchNames: names}
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range []string{" ltd", " limited", " plc", " llp", " inc", " gmbh"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}
