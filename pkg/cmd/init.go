package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skilldeck/skilldeck/internal/initializer"
	"github.com/skilldeck/skilldeck/internal/paths"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the canonical store, lock file and default config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pr, err := paths.NewResolver()
		if err != nil {
			return err
		}

		report, err := initializer.Initialize(pr)
		if err != nil {
			return err
		}

		if report.CreatedStore {
			fmt.Println(color.GreenString("Created %s", pr.SharedRoot()))
		}
		if report.CreatedLockFile {
			fmt.Println(color.GreenString("Created %s", pr.LockFilePath()))
		}
		if report.CreatedConfig {
			fmt.Println(color.GreenString("Created %s", pr.ConfigFilePath()))
		}
		if !report.CreatedStore && !report.CreatedLockFile && !report.CreatedConfig {
			fmt.Println("Already initialized.")
		}
		return nil
	},
}
