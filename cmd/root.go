package cmd

import (
	"context"
	"fmt"
	"os"

	"Phonolib/cache"
	"Phonolib/config"
	corelib "Phonolib/core/library"
	"Phonolib/db"
	"Phonolib/library"
	"Phonolib/logger"
	"Phonolib/storage"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "phonolib",
	Short: "Phonolib is an audio library with a queryable relationship graph.",
	Long: `Phonolib manages an audio library: ingestion with duplicate
detection, ordered collections, a directional relationship graph,
composable filtering and a plugin data ledger.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine loads the configuration and wires the full stack: logger,
// database, optional cache, storage driver and the library engine.
// Callers defer the returned cleanup.
func openEngine(ctx context.Context) (*corelib.Engine, *config.Config, func(), error) {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, OutputPath: cfg.LogPath})

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cache.Connect(cfg); err != nil {
		database.Close()
		return nil, nil, nil, err
	}

	var driver storage.Driver
	switch cfg.StorageDriver {
	case "minio":
		driver, err = storage.NewMinioDriver(ctx, cfg)
	default:
		driver, err = storage.NewLocalDriver(cfg.LibraryPath)
	}
	if err != nil {
		cache.Close()
		database.Close()
		return nil, nil, nil, err
	}

	engine, err := corelib.NewEngine(ctx, database, driver, cfg, library.NewPluginRegistry())
	if err != nil {
		cache.Close()
		database.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		cache.Close()
		database.Close()
		logger.Sync()
	}
	return engine, cfg, cleanup, nil
}
