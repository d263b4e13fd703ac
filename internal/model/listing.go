package model

import (
	"context"
	"strings"
	"time"
)

// ListingStub is a partially-populated posting produced by one search pass.
// The canonical URL is the dedup key for the lifetime of the run and of the
// persisted store.
type ListingStub struct {
	Title      string     // job title, "Unknown" when the page yields nothing
	Company    string     // organization name, "Unknown" when absent
	Location   string     // free-form location, empty when absent
	URL        string     // canonical link, unique key
	Snippet    string     // short description from the search page
	PostedDate *time.Time // best-effort parse of a relative date string
	Source     string     // source tag, e.g. "indeed"
	DetailRef  string     // opaque reference used to fetch the full description
}

// Listing is the normalized record handed to persistence. Title and Company
// are always non-empty; Description is the enriched detail text or, when
// enrichment failed, the search-page snippet.
type Listing struct {
	Title       string
	Company     string
	Description string
	Location    string
	URL         string
	Source      string
	PostedDate  *time.Time
	FirstSeen   time.Time
}

// minViableContent is the fewest description characters worth persisting
// when the stub also carries no usable title.
const minViableContent = 20

// Normalize builds the persistable record from a stub plus the enrichment
// result. An empty description falls back to the search-page snippet; title
// and company default to "Unknown". Returns ok=false for listings with
// almost no content and no title, which are discarded rather than persisted.
func Normalize(stub ListingStub, description string, now time.Time) (Listing, bool) {
	if description == "" {
		description = stub.Snippet
	}

	title := stub.Title
	if title == "" {
		title = "Unknown"
	}
	company := stub.Company
	if company == "" {
		company = "Unknown"
	}

	if len(strings.TrimSpace(description)) < minViableContent && (stub.Title == "" || stub.Title == "Unknown") {
		return Listing{}, false
	}

	return Listing{
		Title:       title,
		Company:     company,
		Description: description,
		Location:    stub.Location,
		URL:         stub.URL,
		Source:      stub.Source,
		PostedDate:  stub.PostedDate,
		FirstSeen:   now,
	}, true
}

// Target is an organization identified by the discovery service as worth
// searching directly. Transient; never persisted.
type Target struct {
	Name     string
	Reason   string
	Industry string
}

// Store is the persistence collaborator. Add is fire-and-forget within a
// run; the commit/rollback boundary is owned by the caller.
type Store interface {
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)
	Add(ctx context.Context, listing Listing) error
}
