package store

import (
	"context"

	"github.com/jobsift/jobsift/internal/model"
)

// MemoryStore keeps listings in a map. Used for dry runs and tests.
type MemoryStore struct {
	listings map[string]model.Listing
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]model.Listing)}
}

// ExistingURLs returns the canonical URLs currently held.
func (s *MemoryStore) ExistingURLs(_ context.Context) (map[string]struct{}, error) {
	urls := make(map[string]struct{}, len(s.listings))
	for url := range s.listings {
		urls[url] = struct{}{}
	}
	return urls, nil
}

// Add stores the listing; an existing canonical URL is left untouched.
func (s *MemoryStore) Add(_ context.Context, l model.Listing) error {
	if _, ok := s.listings[l.URL]; ok {
		return nil
	}
	s.listings[l.URL] = l
	return nil
}

// Listings returns all stored records.
func (s *MemoryStore) Listings() []model.Listing {
	out := make([]model.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		out = append(out, l)
	}
	return out
}
