package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/fetch"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/notifier"
	"github.com/jobsift/jobsift/internal/politeness"
	"github.com/jobsift/jobsift/internal/source"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Job listing scraper and discovery pipeline",
	Long:  "jobsift scrapes job listing sites, deduplicates postings, and can run LLM-guided discovery across target companies.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIFT_CONFIG env var or built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBSIFT_CONFIG env var > built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBSIFT_CONFIG"); env != "" {
			path = env
		} else {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// buildRegistry wires the fetch stack (pacer, robots cache, retrying client)
// and registers every source adapter on top of it.
func buildRegistry(cfg *config.Config, logger *slog.Logger) source.Registry {
	httpClient := &http.Client{Timeout: cfg.Scraping.Timeout}

	pacer := politeness.NewPacer(
		cfg.Scraping.RateLimitPerSecond,
		cfg.Scraping.RequestDelayMin,
		cfg.Scraping.RequestDelayMax,
	)
	robots := politeness.NewRobotsCache(httpClient, logger)
	fetcher := fetch.NewClient(httpClient, pacer, cfg.Scraping.MaxRetries, time.Second, logger)

	return source.NewRegistry(
		source.NewIndeedSource(fetcher, robots, logger),
		source.NewLinkedInSource(fetcher, robots, logger),
	)
}

// buildNotifier picks Slack when a webhook is configured, otherwise slog.
func buildNotifier(cfg *config.Config, logger *slog.Logger) model.Notifier {
	if cfg.Notifications.SlackWebhookURL != "" {
		return notifier.NewSlackNotifier(
			cfg.Notifications.SlackWebhookURL,
			&http.Client{Timeout: 10 * time.Second},
			logger,
		)
	}
	return notifier.NewLogNotifier(logger)
}
