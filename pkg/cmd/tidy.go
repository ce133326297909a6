package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tidyCmd)
}

var tidyCmd = &cobra.Command{
	Use:   "tidy",
	Short: "Remove orphaned tool links and stale registry entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		report, err := eng.Tidy(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d tool directories\n", report.ToolDirsScanned)
		fmt.Printf("Removed %d orphaned link(s)\n", report.OrphanedLinks)
		fmt.Printf("Removed %d stale registry entries\n", report.StaleLockEntries)
		return nil
	},
}
