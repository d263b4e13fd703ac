package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/discovery"
	"github.com/jobsift/jobsift/internal/model"
	"github.com/jobsift/jobsift/internal/store"
	"github.com/jobsift/jobsift/internal/tui"
)

var (
	discoverLocation string
	discoverPlain    bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <role>",
	Short: "LLM-guided discovery: research target companies and scrape each one",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverLocation, "location", "l", "", "preferred location")
	discoverCmd.Flags().BoolVar(&discoverPlain, "plain", false, "log events instead of the live view")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)
	role := args[0]
	for _, extra := range args[1:] {
		role += " " + extra
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.AI.Enabled {
		return fmt.Errorf("discover requires ai.enabled in config")
	}
	if !cfg.Scraping.Enabled {
		return fmt.Errorf("discover requires scraping.enabled in config")
	}

	sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer sqlStore.Close()

	registry := buildRegistry(cfg, logger)
	src, ok := registry.Lookup(cfg.Discovery.Source)
	if !ok {
		return fmt.Errorf("unknown discovery source %q", cfg.Discovery.Source)
	}

	researcher := discovery.NewOpenAIResearcher(
		cfg.AI.BaseURL,
		cfg.AI.APIKey,
		cfg.AI.Model,
		&http.Client{Timeout: cfg.AI.Timeout},
	)
	pipeline := discovery.NewPipeline(researcher, src, sqlStore, cfg.Discovery.MaxPerTarget, cfg.Scraping.FetchDetails, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := pipeline.Run(ctx, role, discoverLocation)

	if discoverPlain {
		return logEvents(events, logger)
	}

	prog := tea.NewProgram(tui.New(role, events))
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("event stream view: %w", err)
	}
	return nil
}

// logEvents drains the stream as structured log lines, one per event.
func logEvents(events <-chan model.ProgressEvent, logger *slog.Logger) error {
	for ev := range events {
		switch ev.Kind {
		case model.EventResearchStarted:
			logger.Info("research started", "message", ev.Message)
		case model.EventTargetsFound:
			logger.Info("targets found", "count", len(ev.Targets))
		case model.EventTargetSearchStarted:
			logger.Info("target search started",
				"target", ev.Target.Name,
				"index", ev.Index,
				"total", ev.Total,
			)
		case model.EventTargetSearchFinished:
			logger.Info("target search finished",
				"target", ev.Result.Target.Name,
				"found", ev.Result.Found,
				"new", ev.Result.New,
				"status", ev.Result.Status,
			)
		case model.EventRunComplete:
			logger.Info("discovery complete", "total_new", ev.TotalNew)
		case model.EventRunFailed:
			return fmt.Errorf("discovery failed: %s", ev.Message)
		}
	}
	return nil
}
