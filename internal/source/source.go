// Package source holds one adapter per listing site. Adapters turn fetched
// search pages into normalized listing stubs and detail pages into
// description text. Upstream markup is not contractually stable, so every
// field is extracted through a chain of fallback selectors and defaulted
// ("Unknown" title/company, empty location) rather than failing the stub.
package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobsift/jobsift/internal/model"
)

// Hard upper bound on results per search call, applied regardless of what
// the caller asks for.
const maxSearchResults = 50

// Fetcher is the retrying GET primitive adapters use for every request.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Robots answers crawl-permission questions. Adapters consult it before each
// search page; a disallowed path is logged as advisory, matching the
// browser-UA posture (wildcard rules are still honored at the fetch layer
// for paths blocked for all agents).
type Robots interface {
	Allowed(rawURL string) bool
}

// Source is one listing site. Search paginates through result pages, stops
// early on an empty page, dedups by canonical URL within the call, and caps
// at maxResults. FetchDetail returns the long-form description for one
// listing, or empty text on any failure so the caller can fall back to the
// search-page snippet.
type Source interface {
	Name() string
	Search(ctx context.Context, query, location string, maxResults int) ([]model.ListingStub, error)
	FetchDetail(ctx context.Context, ref string) string
}

// Registry maps source names to adapters so the orchestrator selects them by
// lookup instead of branching at call sites.
type Registry map[string]Source

// NewRegistry builds a registry from the given adapters, keyed by Name.
func NewRegistry(sources ...Source) Registry {
	r := make(Registry, len(sources))
	for _, s := range sources {
		r[s.Name()] = s
	}
	return r
}

// Lookup returns the adapter registered under name.
func (r Registry) Lookup(name string) (Source, bool) {
	s, ok := r[name]
	return s, ok
}

// capResults clamps the caller's maxResults to [1, maxSearchResults].
func capResults(maxResults int) int {
	if maxResults < 1 {
		return 1
	}
	if maxResults > maxSearchResults {
		return maxSearchResults
	}
	return maxResults
}

// firstText returns the cleaned text of the first selector in the chain
// that matches and yields non-empty text.
func firstText(card *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := cleanText(card.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// cleanText collapses all whitespace runs in s to single spaces.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// digitsIn extracts the first run of consecutive digits in s as an int,
// returning 0 when there are none.
func digitsIn(s string) int {
	n := 0
	found := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			found = true
		} else if found {
			break
		}
	}
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
