package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"Phonolib/core/watch"
	"Phonolib/library"

	"github.com/spf13/cobra"
)

var watchTrackType string

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and ingest audio files as they appear",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher := watch.NewWatcher(engine, library.IngestOptions{TrackType: watchTrackType})
		if err := watcher.Run(ctx, args[0]); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchTrackType, "track-type", "", "track type assigned to ingested files")
	rootCmd.AddCommand(watchCmd)
}
