package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobsift/jobsift/internal/browse"
	"github.com/jobsift/jobsift/internal/store"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse persisted listings in an interactive viewer",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer sqlStore.Close()

	listings, err := sqlStore.Listings(context.Background())
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	return browse.Run(listings)
}
