package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <skill>",
	Aliases: []string{"rm", "delete"},
	Short:   "Delete a skill from the shared store and every tool",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(color.GreenString("Removed '%s'", args[0]))
		return nil
	},
}
