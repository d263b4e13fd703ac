// Package filter screens listing stubs before they are enriched and
// persisted, so a run only keeps roles the user actually cares about.
package filter

import (
	"strings"

	"github.com/jobsift/jobsift/internal/model"
)

// ListingFilter matches stubs whose title contains any of the title keywords
// and whose location contains any of the location keywords. Matching is
// case-insensitive. Empty keyword lists are treated as "match all".
type ListingFilter struct {
	titleKeywords []string
	locations     []string
}

// NewListingFilter returns a filter that requires both a title keyword match
// and a location keyword match (case-insensitive substring).
func NewListingFilter(titleKeywords []string, locations []string) *ListingFilter {
	return &ListingFilter{
		titleKeywords: titleKeywords,
		locations:     locations,
	}
}

// Empty reports whether the filter has no keywords at all, so callers can
// skip it entirely.
func (f *ListingFilter) Empty() bool {
	return len(f.titleKeywords) == 0 && len(f.locations) == 0
}

// Match returns true if the stub's title contains any title keyword and its
// location contains any location keyword. Empty keyword lists pass all.
func (f *ListingFilter) Match(stub model.ListingStub) bool {
	titleLower := strings.ToLower(stub.Title)
	locationLower := strings.ToLower(stub.Location)

	if len(f.titleKeywords) > 0 {
		matched := false
		for _, kw := range f.titleKeywords {
			if strings.Contains(titleLower, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.locations) > 0 {
		matched := false
		for _, loc := range f.locations {
			if strings.Contains(locationLower, strings.ToLower(loc)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
