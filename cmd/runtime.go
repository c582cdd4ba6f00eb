package cmd

import (
	"context"
	"fmt"
	"os"

	"relsave/core/config"
	"relsave/core/logger"
	"relsave/core/storage"

	"go.uber.org/zap"
)

// setup loads the configuration and builds the logger, exiting on failure.
func setup() (*config.Config, *zap.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logg
}

// openJournal connects the save journal. It returns nil when storage is disabled.
func openJournal(ctx context.Context, cfg storage.Config, logg *zap.Logger) (*storage.Journal, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := storage.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	journal := storage.NewJournal(client, cfg, logg)
	if err := journal.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return journal, nil
}
