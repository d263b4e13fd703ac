package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jobsift/jobsift/internal/filter"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/source"
	"github.com/jobsift/jobsift/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource returns canned stubs and details.
type fakeSource struct {
	name        string
	stubs       []model.ListingStub
	searchErr   error
	details     map[string]string // detail ref -> text; missing means enrichment failure
	searchCalls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(_ context.Context, _, _ string, _ int) ([]model.ListingStub, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.stubs, nil
}

func (f *fakeSource) FetchDetail(_ context.Context, ref string) string {
	return f.details[ref]
}

func makeStubs(src string, urls ...string) []model.ListingStub {
	stubs := make([]model.ListingStub, len(urls))
	for i, u := range urls {
		stubs[i] = model.ListingStub{
			Title:     "Backend Engineer",
			Company:   "Acme",
			URL:       u,
			Snippet:   "A perfectly fine snippet of content.",
			Source:    src,
			DetailRef: u,
		}
	}
	return stubs
}

func allEnriched(stubs []model.ListingStub) map[string]string {
	d := make(map[string]string, len(stubs))
	for _, s := range stubs {
		d[s.DetailRef] = "Long form description fetched from the detail page."
	}
	return d
}

func newRunner(st model.Store, enabled bool, sources ...source.Source) *Runner {
	return NewRunner(source.NewRegistry(sources...), st, enabled, discardLogger())
}

func TestRun_AllNewAllEnriched(t *testing.T) {
	stubs := makeStubs("siteA", "https://a/1", "https://a/2", "https://a/3")
	siteA := &fakeSource{name: "siteA", stubs: stubs, details: allEnriched(stubs)}
	st := store.NewMemoryStore()

	report, err := newRunner(st, true, siteA).Run(context.Background(), Params{
		Query:        "backend engineer",
		Sources:      []string{"siteA"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalNew != 3 {
		t.Errorf("total new: expected 3, got %d", report.TotalNew)
	}
	if len(report.Outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(report.Outcomes))
	}
	o := report.Outcomes[0]
	if o.Found != 3 || o.New != 3 || o.Duplicates != 0 || o.Enriched != 3 || len(o.Errors) != 0 {
		t.Errorf("outcome: %+v", o)
	}
	if len(st.Listings()) != 3 {
		t.Errorf("expected 3 persisted listings, got %d", len(st.Listings()))
	}
	if len(report.Listings) != 3 {
		t.Errorf("expected 3 listings in report for notification, got %d", len(report.Listings))
	}
}

func TestRun_FilterSkipsNonMatchingStubs(t *testing.T) {
	stubs := makeStubs("siteA", "https://a/1", "https://a/2")
	stubs[1].Title = "Product Designer"
	siteA := &fakeSource{name: "siteA", stubs: stubs, details: allEnriched(stubs)}
	st := store.NewMemoryStore()

	runner := newRunner(st, true, siteA)
	runner.SetFilter(filter.NewListingFilter([]string{"engineer"}, nil))

	report, err := runner.Run(context.Background(), Params{
		Sources:      []string{"siteA"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := report.Outcomes[0]
	if o.Found != 2 || o.New != 1 || o.Filtered != 1 {
		t.Errorf("expected found=2 new=1 filtered=1, got %+v", o)
	}
	if len(st.Listings()) != 1 {
		t.Errorf("filtered stub must not be persisted, got %d listings", len(st.Listings()))
	}
}

func TestRun_ExistingURLCountsAsDuplicate(t *testing.T) {
	stubs := makeStubs("siteA", "https://a/1", "https://a/2", "https://a/3")
	siteA := &fakeSource{name: "siteA", stubs: stubs, details: allEnriched(stubs)}
	st := store.NewMemoryStore()
	st.Add(context.Background(), model.Listing{URL: "https://a/2", Title: "x", Company: "y"})

	report, err := newRunner(st, true, siteA).Run(context.Background(), Params{
		Sources:      []string{"siteA"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	o := report.Outcomes[0]
	if o.New != 2 || o.Duplicates != 1 {
		t.Errorf("expected new=2 duplicates=1, got %+v", o)
	}
}

func TestRun_SourceFailureIsIsolated(t *testing.T) {
	siteA := &fakeSource{name: "siteA", searchErr: errors.New("markup went sideways")}
	stubsB := makeStubs("siteB", "https://b/1")
	siteB := &fakeSource{name: "siteB", stubs: stubsB, details: allEnriched(stubsB)}
	st := store.NewMemoryStore()

	report, err := newRunner(st, true, siteA, siteB).Run(context.Background(), Params{
		Sources:      []string{"siteA", "siteB"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Outcomes) != 2 {
		t.Fatalf("expected an outcome per requested source, got %d", len(report.Outcomes))
	}
	a, b := report.Outcomes[0], report.Outcomes[1]
	if a.Source != "siteA" || b.Source != "siteB" {
		t.Fatalf("outcomes out of request order: %s, %s", a.Source, b.Source)
	}
	if a.Found != 0 || a.New != 0 || len(a.Errors) != 1 {
		t.Errorf("failed source outcome: %+v", a)
	}
	if b.New != 1 || len(b.Errors) != 0 {
		t.Errorf("healthy source affected by sibling failure: %+v", b)
	}
}

func TestRun_SnippetFallbackOnEnrichmentFailure(t *testing.T) {
	stubs := makeStubs("siteA", "https://a/1")
	siteA := &fakeSource{name: "siteA", stubs: stubs} // no details at all
	st := store.NewMemoryStore()

	report, err := newRunner(st, true, siteA).Run(context.Background(), Params{
		Sources:      []string{"siteA"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Outcomes[0].Enriched != 0 {
		t.Errorf("expected no enrichment, got %d", report.Outcomes[0].Enriched)
	}
	listings := st.Listings()
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].Description != stubs[0].Snippet {
		t.Errorf("expected snippet fallback, got %q", listings[0].Description)
	}
}

func TestRun_DiscardsContentFreeStubs(t *testing.T) {
	stubs := []model.ListingStub{{
		Title:   "Unknown",
		Company: "Unknown",
		URL:     "https://a/empty",
		Snippet: "too short",
		Source:  "siteA",
	}}
	siteA := &fakeSource{name: "siteA", stubs: stubs}
	st := store.NewMemoryStore()

	report, err := newRunner(st, true, siteA).Run(context.Background(), Params{
		Sources: []string{"siteA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalNew != 0 {
		t.Errorf("content-free stub must not count as new, got %d", report.TotalNew)
	}
	if len(st.Listings()) != 0 {
		t.Errorf("content-free stub must not be persisted")
	}
}

func TestRun_CrossSourceDedupWithinRun(t *testing.T) {
	shared := "https://shared/job"
	stubsA := makeStubs("siteA", shared)
	stubsB := makeStubs("siteB", shared)
	siteA := &fakeSource{name: "siteA", stubs: stubsA, details: allEnriched(stubsA)}
	siteB := &fakeSource{name: "siteB", stubs: stubsB, details: allEnriched(stubsB)}
	st := store.NewMemoryStore()

	report, err := newRunner(st, true, siteA, siteB).Run(context.Background(), Params{
		Sources:      []string{"siteA", "siteB"},
		FetchDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalNew != 1 {
		t.Errorf("expected the shared URL persisted once, got total new %d", report.TotalNew)
	}
	if report.Outcomes[1].Duplicates != 1 {
		t.Errorf("expected siteB to see a duplicate, got %+v", report.Outcomes[1])
	}
}

func TestRun_DisabledShortCircuits(t *testing.T) {
	siteA := &fakeSource{name: "siteA", stubs: makeStubs("siteA", "https://a/1")}
	st := store.NewMemoryStore()

	report, err := newRunner(st, false, siteA).Run(context.Background(), Params{
		Sources: []string{"siteA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalNew != 0 || len(report.Outcomes) != 0 {
		t.Errorf("expected empty report when disabled, got %+v", report)
	}
	if siteA.searchCalls != 0 {
		t.Errorf("expected zero network activity when disabled, got %d searches", siteA.searchCalls)
	}
}

func TestRun_UnknownSourceGetsErrorOutcome(t *testing.T) {
	st := store.NewMemoryStore()

	report, err := newRunner(st, true).Run(context.Background(), Params{
		Sources: []string{"siteX"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Outcomes) != 1 || len(report.Outcomes[0].Errors) != 1 {
		t.Fatalf("expected an error outcome for the unknown source, got %+v", report)
	}
}
