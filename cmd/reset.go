package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every track, collection and stored file of the configured user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce {
			fmt.Print("this deletes all library data, type 'yes' to continue: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("reset aborted")
				return nil
			}
		}

		engine, _, cleanup, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := engine.Reset(cmd.Context(), engine.DefaultUserID(), true); err != nil {
			return err
		}
		fmt.Println("library reset")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
