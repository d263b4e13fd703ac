package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/model"
)

func testListing(url string) model.Listing {
	return model.Listing{
		Title:       "Software Engineer",
		Company:     "Acme",
		Description: "Build things.",
		Location:    "Remote",
		URL:         url,
		Source:      "indeed",
		FirstSeen:   time.Now(),
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "listings.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_AddAndExistingURLs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	urls, err := s.ExistingURLs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected empty store, got %d urls", len(urls))
	}

	if err := s.Add(ctx, testListing("https://jobs/1")); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := s.Add(ctx, testListing("https://jobs/2")); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	urls, err = s.ExistingURLs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
	if _, ok := urls["https://jobs/1"]; !ok {
		t.Error("missing https://jobs/1")
	}
}

func TestSQLiteStore_DuplicateURLIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := testListing("https://jobs/1")
	if err := s.Add(ctx, first); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	second := testListing("https://jobs/1")
	second.Title = "Different Title"
	if err := s.Add(ctx, second); err != nil {
		t.Fatalf("duplicate add should not error: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 listing, got %d", n)
	}
}

func TestSQLiteStore_NilPostedDate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	l := testListing("https://jobs/nodate")
	l.PostedDate = nil
	l.Location = ""
	if err := s.Add(ctx, l); err != nil {
		t.Fatalf("add with nil posted date failed: %v", err)
	}
}

func TestSQLiteStore_ListingsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := testListing("https://jobs/old")
	oldDate := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old.PostedDate = &oldDate

	fresh := testListing("https://jobs/fresh")
	freshDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	fresh.PostedDate = &freshDate

	undated := testListing("https://jobs/undated")
	undated.PostedDate = nil

	for _, l := range []model.Listing{old, undated, fresh} {
		if err := s.Add(ctx, l); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	listings, err := s.Listings(ctx)
	if err != nil {
		t.Fatalf("listings failed: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}
	if listings[0].URL != "https://jobs/fresh" || listings[1].URL != "https://jobs/old" {
		t.Errorf("dated listings out of order: %s, %s", listings[0].URL, listings[1].URL)
	}
	if listings[2].URL != "https://jobs/undated" {
		t.Errorf("expected undated listing last, got %s", listings[2].URL)
	}
	if listings[1].PostedDate == nil || !listings[1].PostedDate.Equal(oldDate) {
		t.Errorf("posted date not round-tripped: %v", listings[1].PostedDate)
	}
}
