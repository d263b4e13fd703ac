package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/filter"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/scrape"
	"github.com/jobsift/jobsift/internal/store"
)

var (
	scrapeQuery    string
	scrapeLocation string
	scrapeSources  []string
	scrapeMax      int
	scrapeNoDetail bool
	scrapeDryRun   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape across the configured sources",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeQuery, "query", "q", "software engineer", "search keywords")
	scrapeCmd.Flags().StringVarP(&scrapeLocation, "location", "l", "", "location (city, \"Remote\", or empty for all)")
	scrapeCmd.Flags().StringSliceVar(&scrapeSources, "sources", nil, "sources to scrape, in order (default: from config)")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max", 0, "max listings per source (default: from config)")
	scrapeCmd.Flags().BoolVar(&scrapeNoDetail, "no-details", false, "skip fetching full descriptions")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "scrape into memory, persist nothing")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var st model.Store
	if scrapeDryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		st = store.NewMemoryStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer sqlStore.Close()
		st = sqlStore
	}

	sources := cfg.Scraping.Sources
	if len(scrapeSources) > 0 {
		sources = scrapeSources
	}
	maxPerSource := cfg.Scraping.MaxPerSource
	if scrapeMax > 0 {
		maxPerSource = scrapeMax
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := scrape.NewRunner(buildRegistry(cfg, logger), st, cfg.Scraping.Enabled, logger)
	runner.SetFilter(filter.NewListingFilter(cfg.Filter.TitleKeywords, cfg.Filter.Locations))
	report, err := runner.Run(ctx, scrape.Params{
		Query:        scrapeQuery,
		Location:     scrapeLocation,
		Sources:      sources,
		MaxPerSource: maxPerSource,
		FetchDetails: cfg.Scraping.FetchDetails && !scrapeNoDetail,
	})
	if err != nil {
		return err
	}

	printReport(cmd, report)

	if cfg.Notifications.Enabled && !scrapeDryRun && len(report.Listings) > 0 {
		if err := buildNotifier(cfg, logger).Notify(report.Listings); err != nil {
			logger.Error("notification failed", "error", err)
		}
	}
	return nil
}

func printReport(cmd *cobra.Command, report *model.Report) {
	for _, o := range report.Outcomes {
		cmd.Printf("%-10s found=%d new=%d duplicates=%d filtered=%d enriched=%d\n",
			o.Source, o.Found, o.New, o.Duplicates, o.Filtered, o.Enriched)
		for _, e := range o.Errors {
			cmd.Printf("           error: %s\n", strings.TrimSpace(e))
		}
	}
	cmd.Printf("total new: %d\n", report.TotalNew)
}
