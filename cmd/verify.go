package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var verifyRemoveOrphans bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check library records against stored files",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		ctx := cmd.Context()

		report, err := engine.Verify(ctx, engine.DefaultUserID())
		if err != nil {
			return err
		}
		if report.Clean() {
			fmt.Println("library is consistent")
			return nil
		}

		for _, e := range report.MissingFiles {
			fmt.Printf("missing: track %s -> %s\n", e.TrackID, e.File)
		}
		for _, e := range report.OrphanedFiles {
			fmt.Printf("orphaned: %s\n", e.File)
		}

		if verifyRemoveOrphans && len(report.OrphanedFiles) > 0 {
			fmt.Printf("remove %d orphaned files? [y/N] ", len(report.OrphanedFiles))
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Println("leaving orphaned files in place")
				return nil
			}
			userID := engine.DefaultUserID().String()
			for _, e := range report.OrphanedFiles {
				if err := engine.Storage().Remove(ctx, e.File, userID); err != nil {
					fmt.Printf("failed to remove %s: %v\n", e.File, err)
				}
			}
			fmt.Println("orphaned files removed")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyRemoveOrphans, "remove-orphans", false, "offer to delete stored files with no library record")
	rootCmd.AddCommand(verifyCmd)
}
