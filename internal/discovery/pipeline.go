package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/source"
)

// Pipeline runs LLM-guided discovery: research targets, then search each
// target in order against one source adapter, persisting survivors.
//
// Events are delivered over an unbuffered channel, which is the
// back-pressure rule: the work for target i+1 does not start before target
// i's finished event has been handed to the consumer. Exactly one terminal
// event (run-complete or run-failed) closes every stream.
type Pipeline struct {
	researcher   Researcher
	src          source.Source
	store        model.Store
	maxPerTarget int
	fetchDetails bool
	logger       *slog.Logger
	now          func() time.Time
}

// NewPipeline wires a discovery pipeline that searches src for each target.
func NewPipeline(researcher Researcher, src source.Source, store model.Store, maxPerTarget int, fetchDetails bool, logger *slog.Logger) *Pipeline {
	if maxPerTarget <= 0 {
		maxPerTarget = 5
	}
	return &Pipeline{
		researcher:   researcher,
		src:          src,
		store:        store,
		maxPerTarget: maxPerTarget,
		fetchDetails: fetchDetails,
		logger:       logger,
		now:          time.Now,
	}
}

// Run starts a discovery run and returns its event stream. The channel is
// closed after the terminal event. If the consumer stops pulling, the
// producer blocks until ctx is cancelled. Persistence already performed for
// processed targets is not rolled back; the store commits per Add.
func (p *Pipeline) Run(ctx context.Context, role, location string) <-chan model.ProgressEvent {
	events := make(chan model.ProgressEvent)
	go p.run(ctx, role, location, events)
	return events
}

func (p *Pipeline) run(ctx context.Context, role, location string, events chan<- model.ProgressEvent) {
	defer close(events)

	emit := func(ev model.ProgressEvent) bool {
		select {
		case <-ctx.Done():
			return false
		case events <- ev:
			return true
		}
	}

	if !emit(model.ProgressEvent{
		Kind:    model.EventResearchStarted,
		Message: fmt.Sprintf("Researching top companies for: %s", role),
	}) {
		return
	}

	targets, err := p.researcher.IdentifyTargets(ctx, role, location)
	if err != nil {
		p.logger.Error("target research failed", "role", role, "error", err)
		emit(model.ProgressEvent{
			Kind:    model.EventRunFailed,
			Message: fmt.Sprintf("Research failed: %v", err),
		})
		return
	}
	if len(targets) == 0 {
		emit(model.ProgressEvent{
			Kind:    model.EventRunFailed,
			Message: "Could not identify companies. Try a different role.",
		})
		return
	}

	if !emit(model.ProgressEvent{Kind: model.EventTargetsFound, Targets: targets}) {
		return
	}

	existing, err := p.store.ExistingURLs(ctx)
	if err != nil {
		emit(model.ProgressEvent{
			Kind:    model.EventRunFailed,
			Message: fmt.Sprintf("Could not load known listings: %v", err),
		})
		return
	}
	collector := dedup.NewCollector()
	collector.Seed(existing)

	totalNew := 0
	results := make([]model.TargetResult, 0, len(targets))

	for i, target := range targets {
		if !emit(model.ProgressEvent{
			Kind:   model.EventTargetSearchStarted,
			Target: &targets[i],
			Index:  i,
			Total:  len(targets),
		}) {
			return
		}

		result := p.searchTarget(ctx, role, location, target, collector)
		totalNew += result.New
		results = append(results, result)

		if !emit(model.ProgressEvent{
			Kind:   model.EventTargetSearchFinished,
			Result: &results[len(results)-1],
			Index:  i,
			Total:  len(targets),
		}) {
			return
		}
	}

	emit(model.ProgressEvent{
		Kind:     model.EventRunComplete,
		TotalNew: totalNew,
		Results:  results,
	})
}

// searchTarget scrapes one target company. A search failure yields an
// "error" result and the run continues with the next target.
func (p *Pipeline) searchTarget(ctx context.Context, role, location string, target model.Target, collector *dedup.Collector) model.TargetResult {
	result := model.TargetResult{Target: target, Status: "done"}

	query := fmt.Sprintf("%s %s", role, target.Name)
	stubs, err := p.src.Search(ctx, query, location, p.maxPerTarget)
	if err != nil {
		p.logger.Warn("target search failed", "target", target.Name, "error", err)
		result.Status = "error"
		result.Err = truncate(err.Error(), 100)
		return result
	}
	result.Found = len(stubs)

	for _, stub := range stubs {
		if !collector.IsNew(stub.URL) {
			continue
		}

		description := ""
		if p.fetchDetails && stub.DetailRef != "" {
			description = p.src.FetchDetail(ctx, stub.DetailRef)
		}

		if stub.Company == "" {
			stub.Company = target.Name
		}
		listing, ok := model.Normalize(stub, description, p.now())
		if !ok {
			continue
		}
		listing.Source = "discovery"

		if err := p.store.Add(ctx, listing); err != nil {
			p.logger.Warn("persist failed", "url", stub.URL, "error", err)
			continue
		}
		collector.MarkSeen(stub.URL)
		result.New++
	}

	return result
}
