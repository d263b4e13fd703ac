package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeResearcher struct {
	targets []model.Target
	err     error
}

func (f *fakeResearcher) IdentifyTargets(_ context.Context, _, _ string) ([]model.Target, error) {
	return f.targets, f.err
}

// fakeSource returns one distinct stub per query so dedup can be exercised
// across targets.
type fakeSource struct {
	searchCalls  atomic.Int64
	failFor      string // target name whose search fails
	sharedURL    string // when set, every search also returns this URL
	detailByRef  map[string]string
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Search(_ context.Context, query, _ string, _ int) ([]model.ListingStub, error) {
	f.searchCalls.Add(1)
	if f.failFor != "" && strings.Contains(query, f.failFor) {
		return nil, errors.New("guest api said no")
	}
	stubs := []model.ListingStub{{
		Title:     "Engineer",
		Company:   "Acme",
		URL:       fmt.Sprintf("https://jobs/%s", strings.ReplaceAll(query, " ", "-")),
		Snippet:   "A snippet long enough to be worth keeping.",
		Source:    "fake",
		DetailRef: "ref-" + query,
	}}
	if f.sharedURL != "" {
		stubs = append(stubs, model.ListingStub{
			Title:   "Engineer",
			Company: "Acme",
			URL:     f.sharedURL,
			Snippet: "The same job showing up for every company.",
			Source:  "fake",
		})
	}
	return stubs, nil
}

func (f *fakeSource) FetchDetail(_ context.Context, ref string) string {
	return f.detailByRef[ref]
}

func targetsOf(names ...string) []model.Target {
	ts := make([]model.Target, len(names))
	for i, n := range names {
		ts[i] = model.Target{Name: n, Reason: "strong team", Industry: "Tech"}
	}
	return ts
}

func collect(t *testing.T, events <-chan model.ProgressEvent) []model.ProgressEvent {
	t.Helper()
	var all []model.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return all
			}
			all = append(all, ev)
		case <-timeout:
			t.Fatal("timed out draining event stream")
		}
	}
}

func kinds(events []model.ProgressEvent) []model.EventKind {
	ks := make([]model.EventKind, len(events))
	for i, ev := range events {
		ks[i] = ev.Kind
	}
	return ks
}

func newPipeline(r Researcher, src *fakeSource, st model.Store) *Pipeline {
	return NewPipeline(r, src, st, 5, true, discardLogger())
}

func TestPipeline_EventOrdering(t *testing.T) {
	st := store.NewMemoryStore()
	p := newPipeline(&fakeResearcher{targets: targetsOf("Acme", "Globex")}, &fakeSource{}, st)

	events := collect(t, p.Run(context.Background(), "backend engineer", ""))

	want := []model.EventKind{
		model.EventResearchStarted,
		model.EventTargetsFound,
		model.EventTargetSearchStarted,
		model.EventTargetSearchFinished,
		model.EventTargetSearchStarted,
		model.EventTargetSearchFinished,
		model.EventRunComplete,
	}
	got := kinds(events)
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}

	final := events[len(events)-1]
	if final.TotalNew != 2 {
		t.Errorf("expected 2 new listings, got %d", final.TotalNew)
	}
	if len(final.Results) != 2 {
		t.Errorf("expected 2 target results, got %d", len(final.Results))
	}
}

func TestPipeline_ResearcherFailureIsTerminal(t *testing.T) {
	st := store.NewMemoryStore()
	r := &fakeResearcher{err: &model.ServiceError{Op: "research request", Err: errors.New("unreachable")}}
	src := &fakeSource{}
	p := newPipeline(r, src, st)

	events := collect(t, p.Run(context.Background(), "backend engineer", ""))

	got := kinds(events)
	if len(got) != 2 || got[0] != model.EventResearchStarted || got[1] != model.EventRunFailed {
		t.Fatalf("expected research-started then run-failed, got %v", got)
	}
	if len(st.Listings()) != 0 {
		t.Error("nothing may be persisted on a failed run")
	}
	if src.searchCalls.Load() != 0 {
		t.Error("no searches may run after research failure")
	}
}

func TestPipeline_ZeroTargetsIsTerminal(t *testing.T) {
	st := store.NewMemoryStore()
	p := newPipeline(&fakeResearcher{targets: nil}, &fakeSource{}, st)

	events := collect(t, p.Run(context.Background(), "underwater basket weaver", ""))

	got := kinds(events)
	if got[len(got)-1] != model.EventRunFailed {
		t.Fatalf("expected terminal run-failed, got %v", got)
	}
	if len(st.Listings()) != 0 {
		t.Error("nothing may be persisted when no targets were found")
	}
}

func TestPipeline_TargetFailureDoesNotAbortRun(t *testing.T) {
	st := store.NewMemoryStore()
	src := &fakeSource{failFor: "Globex"}
	p := newPipeline(&fakeResearcher{targets: targetsOf("Acme", "Globex", "Initech")}, src, st)

	events := collect(t, p.Run(context.Background(), "sre", ""))

	got := kinds(events)
	if got[len(got)-1] != model.EventRunComplete {
		t.Fatalf("expected run-complete despite one failing target, got %v", got)
	}

	var finished []model.TargetResult
	for _, ev := range events {
		if ev.Kind == model.EventTargetSearchFinished {
			finished = append(finished, *ev.Result)
		}
	}
	if len(finished) != 3 {
		t.Fatalf("expected 3 finished events, got %d", len(finished))
	}
	if finished[1].Status != "error" || finished[1].Err == "" {
		t.Errorf("expected error status for Globex, got %+v", finished[1])
	}
	if finished[0].Status != "done" || finished[2].Status != "done" {
		t.Errorf("healthy targets affected: %+v", finished)
	}
}

func TestPipeline_DedupAcrossTargets(t *testing.T) {
	st := store.NewMemoryStore()
	src := &fakeSource{sharedURL: "https://jobs/shared"}
	p := newPipeline(&fakeResearcher{targets: targetsOf("Acme", "Globex")}, src, st)

	events := collect(t, p.Run(context.Background(), "sre", ""))

	final := events[len(events)-1]
	if final.Kind != model.EventRunComplete {
		t.Fatalf("expected run-complete, got %s", final.Kind)
	}
	// Two per-target URLs plus the shared one exactly once.
	if final.TotalNew != 3 {
		t.Errorf("expected 3 new listings, got %d", final.TotalNew)
	}
	if final.Results[0].New != 2 || final.Results[1].New != 1 {
		t.Errorf("expected the shared URL deduped on the second target: %+v", final.Results)
	}
}

func TestPipeline_BackPressure(t *testing.T) {
	st := store.NewMemoryStore()
	src := &fakeSource{}
	p := newPipeline(&fakeResearcher{targets: targetsOf("Acme", "Globex")}, src, st)

	events := p.Run(context.Background(), "sre", "")

	next := func() model.ProgressEvent {
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
			return model.ProgressEvent{}
		}
	}

	next() // research-started
	next() // targets-found
	next() // started Acme
	ev := next()
	if ev.Kind != model.EventTargetSearchFinished {
		t.Fatalf("expected target-search-finished, got %s", ev.Kind)
	}

	// The producer must not have begun Globex's search: its next event
	// (target-search-started) has not been consumed yet.
	time.Sleep(50 * time.Millisecond)
	if got := src.searchCalls.Load(); got != 1 {
		t.Fatalf("target 2's work started before target 1's finished event was consumed: %d searches", got)
	}

	for range events {
		// drain
	}
	if got := src.searchCalls.Load(); got != 2 {
		t.Fatalf("expected 2 searches after draining, got %d", got)
	}
}

func TestPipeline_ConsumerCancellation(t *testing.T) {
	st := store.NewMemoryStore()
	p := newPipeline(&fakeResearcher{targets: targetsOf("Acme", "Globex")}, &fakeSource{}, st)

	ctx, cancel := context.WithCancel(context.Background())
	events := p.Run(ctx, "sre", "")

	<-events // research-started
	cancel() // stop pulling

	// A few in-flight events may still be delivered; the channel must close
	// shortly after cancellation either way.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream did not terminate after cancellation")
		}
	}
}
