package model

import "strings"

// SourceID identifies one external job-posting provider.
type SourceID string

const (
	SourceLinkedIn    SourceID = "linkedin"
	SourceIndeed      SourceID = "indeed"
	SourceGoogle      SourceID = "google"
	SourceGradcracker SourceID = "gradcracker"
	SourceUKVisaJobs  SourceID = "ukvisajobs"
)

// AllSources in the order runs fan out when the caller does not narrow the
// source list.
var AllSources = []SourceID{
	SourceLinkedIn,
	SourceIndeed,
	SourceGoogle,
	SourceGradcracker,
	SourceUKVisaJobs,
}

// sourceCountries is the static compatibility table. A nil entry means the
// source works in any country.
var sourceCountries = map[SourceID][]string{
	SourceGradcracker: {"united kingdom"},
	SourceUKVisaJobs:  {"united kingdom"},
}

// SupportsCountry reports whether the source can be crawled for the given
// country. Country matching is case-insensitive.
func (s SourceID) SupportsCountry(country string) bool {
	allowed, ok := sourceCountries[s]
	if !ok {
		return true
	}
	country = strings.ToLower(strings.TrimSpace(country))
	for _, c := range allowed {
		if c == country {
			return true
		}
	}
	return false
}

// CompatibleSources filters requested down to the sources that support the
// country, preserving request order.
func CompatibleSources(requested []SourceID, country string) []SourceID {
	out := make([]SourceID, 0, len(requested))
	for _, s := range requested {
		if s.SupportsCountry(country) {
			out = append(out, s)
		}
	}
	return out
}
