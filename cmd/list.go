package cmd

import (
	"fmt"

	"Phonolib/library"
	"Phonolib/model"

	"github.com/spf13/cobra"
)

var (
	listTrackType string
	listSearch    string
	listLimit     int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracks, searching meta when a value is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		q := library.TrackQuery{
			UserID: engine.DefaultUserID(),
			Limit:  listLimit,
		}
		if listTrackType != "" {
			q.TrackTypes = []string{listTrackType}
		}
		if listSearch != "" {
			q.SearchMeta = []string{listSearch}
		}

		count := 0
		err = engine.ForEachTrack(cmd.Context(), q, func(track *model.Track) error {
			title, _ := track.Meta["title"].(string)
			fmt.Printf("%s  %-10s %s\n", track.ID, track.TrackType, title)
			count++
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("%d tracks\n", count)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listTrackType, "track-type", "", "only list tracks of this type")
	listCmd.Flags().StringVar(&listSearch, "search", "", "substring to match against track meta")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "stop after this many tracks (0 = all)")
	rootCmd.AddCommand(listCmd)
}
