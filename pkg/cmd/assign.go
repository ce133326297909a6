package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(unassignCmd)
}

var assignCmd = &cobra.Command{
	Use:   "assign <skill> <tool>",
	Short: "Link a skill into a tool's skills directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Assign(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println(color.GreenString("Linked '%s' into %s", args[0], args[1]))
		return nil
	},
}

var unassignCmd = &cobra.Command{
	Use:   "unassign <skill> <tool>",
	Short: "Remove a tool's link to a skill",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		if err := eng.Unassign(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Println(color.GreenString("Unlinked '%s' from %s", args[0], args[1]))
		return nil
	},
}
