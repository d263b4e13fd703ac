// Package scrape sequences source adapters across one run: search, dedup,
// enrich, persist, and aggregate per-source outcomes into a report.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobsift/jobsift/internal/dedup"
	"github.com/jobsift/jobsift/internal/filter"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/source"
)

// Params describes one scrape run.
type Params struct {
	Query        string
	Location     string
	Sources      []string // processed in this order, one completed before the next
	MaxPerSource int
	FetchDetails bool
}

// Runner orchestrates a run across the requested sources. A failure in one
// source's search is recorded as that source's sole error and never aborts
// the remaining sources.
type Runner struct {
	registry source.Registry
	store    model.Store
	enabled  bool
	filter   *filter.ListingFilter
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner wires the orchestrator. enabled=false short-circuits every run
// to an empty report without network calls.
func NewRunner(registry source.Registry, store model.Store, enabled bool, logger *slog.Logger) *Runner {
	return &Runner{
		registry: registry,
		store:    store,
		enabled:  enabled,
		logger:   logger,
		now:      time.Now,
	}
}

// SetFilter installs a keyword filter applied to every stub before
// enrichment. A nil or empty filter passes everything through.
func (r *Runner) SetFilter(f *filter.ListingFilter) {
	if f == nil || f.Empty() {
		return
	}
	r.filter = f
}

// Run executes one scrape across p.Sources in request order and returns the
// aggregate report. The only error it returns itself is a failure to load
// the dedup seed; everything downstream is captured per source.
func (r *Runner) Run(ctx context.Context, p Params) (*model.Report, error) {
	report := &model.Report{}

	if !r.enabled {
		r.logger.Info("scraping is disabled in config")
		return report, nil
	}

	if p.Query == "" {
		p.Query = "software engineer"
	}
	if p.MaxPerSource <= 0 {
		p.MaxPerSource = 25
	}
	if len(p.Sources) == 0 {
		p.Sources = []string{"indeed", "linkedin"}
	}

	existing, err := r.store.ExistingURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing listing urls: %w", err)
	}
	collector := dedup.NewCollector()
	collector.Seed(existing)

	for _, name := range p.Sources {
		src, ok := r.registry.Lookup(name)
		if !ok {
			r.logger.Warn("unknown scraper source", "source", name)
			outcome := model.SourceOutcome{Source: name}
			outcome.AddError("unknown source")
			report.Append(outcome)
			continue
		}
		outcome, added := r.scrapeSource(ctx, src, p, collector)
		report.Append(outcome)
		report.Listings = append(report.Listings, added...)
	}

	r.logger.Info("scrape run complete",
		"total_new", report.TotalNew,
		"query", p.Query,
		"location", p.Location,
	)
	return report, nil
}

// scrapeSource runs search, dedup, enrich, persist for one source. It
// returns the outcome plus the listings persisted for the first time.
func (r *Runner) scrapeSource(ctx context.Context, src source.Source, p Params, collector *dedup.Collector) (model.SourceOutcome, []model.Listing) {
	outcome := model.SourceOutcome{Source: src.Name()}
	var added []model.Listing

	stubs, err := src.Search(ctx, p.Query, p.Location, p.MaxPerSource)
	if err != nil {
		outcome.AddError(fmt.Sprintf("search failed: %v", err))
		return outcome, nil
	}
	outcome.Found = len(stubs)

	for _, stub := range stubs {
		if ctx.Err() != nil {
			outcome.AddError(fmt.Sprintf("run cancelled: %v", ctx.Err()))
			return outcome, added
		}

		if !collector.IsNew(stub.URL) {
			outcome.Duplicates++
			continue
		}

		if r.filter != nil && !r.filter.Match(stub) {
			outcome.Filtered++
			continue
		}

		description := ""
		if p.FetchDetails && stub.DetailRef != "" {
			// Enrichment failure is not an error: FetchDetail returns empty
			// text and the snippet takes over.
			description = src.FetchDetail(ctx, stub.DetailRef)
			if description != "" {
				outcome.Enriched++
			}
		}

		listing, ok := model.Normalize(stub, description, r.now())
		if !ok {
			continue
		}

		if err := r.store.Add(ctx, listing); err != nil {
			outcome.AddError(fmt.Sprintf("persist %s: %v", stub.URL, err))
			continue
		}
		collector.MarkSeen(stub.URL)
		outcome.New++
		added = append(added, listing)
	}

	r.logger.Info("source scraped",
		"source", src.Name(),
		"found", outcome.Found,
		"new", outcome.New,
		"duplicates", outcome.Duplicates,
		"filtered", outcome.Filtered,
		"enriched", outcome.Enriched,
	)
	return outcome, added
}
