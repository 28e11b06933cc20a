package cmd

import (
	"fmt"

	"Phonolib/library"

	"github.com/spf13/cobra"
)

var scanTrackType string

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Ingest every supported audio file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		tracks, err := engine.AddTracks(cmd.Context(), args[0], library.IngestOptions{
			TrackType: scanTrackType,
		})
		if err != nil {
			return err
		}
		fmt.Printf("added %d tracks\n", len(tracks))
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanTrackType, "track-type", "", "track type assigned to ingested files")
	rootCmd.AddCommand(scanCmd)
}
