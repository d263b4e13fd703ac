package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/filter"
	"github.com/jobsift/jobsift/internal/scheduler"
	"github.com/jobsift/jobsift/internal/scrape"
	"github.com/jobsift/jobsift/internal/store"
)

var (
	watchQuery    string
	watchLocation string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scrape on an interval and announce new listings as they appear",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchQuery, "query", "q", "software engineer", "search keywords")
	watchCmd.Flags().StringVarP(&watchLocation, "location", "l", "", "location (city, \"Remote\", or empty for all)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Scraping.Enabled {
		return fmt.Errorf("watch requires scraping.enabled in config")
	}

	sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer sqlStore.Close()

	runner := scrape.NewRunner(buildRegistry(cfg, logger), sqlStore, cfg.Scraping.Enabled, logger)
	runner.SetFilter(filter.NewListingFilter(cfg.Filter.TitleKeywords, cfg.Filter.Locations))
	notify := buildNotifier(cfg, logger)

	cycle := func(ctx context.Context) error {
		report, err := runner.Run(ctx, scrape.Params{
			Query:        watchQuery,
			Location:     watchLocation,
			Sources:      cfg.Scraping.Sources,
			MaxPerSource: cfg.Scraping.MaxPerSource,
			FetchDetails: cfg.Scraping.FetchDetails,
		})
		if err != nil {
			return err
		}
		if cfg.Notifications.Enabled && len(report.Listings) > 0 {
			if err := notify.Notify(report.Listings); err != nil {
				logger.Error("notification failed", "error", err)
			}
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return scheduler.NewScheduler(cycle, cfg.Scraping.WatchInterval, logger).Run(ctx)
}
