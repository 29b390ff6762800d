package adapter

import "context"

// SponsorMatch is one visa-sponsor register hit for an employer name.
type SponsorMatch struct {
	Name  string
	City  string
	Route string
}

// SponsorSummary condenses register hits into the fields stored on a job.
type SponsorSummary struct {
	SponsorMatchScore int
	SponsorMatchNames []string
}

// SponsorMatcher looks an employer up in a visa-sponsor register.
type SponsorMatcher interface {
	Search(ctx context.Context, employerName string) ([]SponsorMatch, error)
	Summarize(matches []SponsorMatch) SponsorSummary
}
