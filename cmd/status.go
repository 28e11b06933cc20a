package cmd

import (
	"fmt"

	"Phonolib/library"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library size and collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		ctx := cmd.Context()

		size, err := engine.LibrarySize(ctx, engine.DefaultUserID())
		if err != nil {
			return err
		}
		fmt.Printf("tracks: %d\n", size)

		collections, err := engine.GetCollections(ctx, engine.DefaultUserID(), library.ListOptions{OrderBy: "name"})
		if err != nil {
			return err
		}
		fmt.Printf("collections: %d\n", len(collections))
		for _, col := range collections {
			n, err := engine.CollectionSize(ctx, col.ID)
			if err != nil {
				return err
			}
			fmt.Printf("  %s (%s, %d tracks)\n", col.Name, col.CollectionType, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
