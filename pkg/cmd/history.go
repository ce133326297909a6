package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const historyDateFormat = "2006-01-02 15:04"

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently used skill repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		entries := eng.Cache().RepoHistory()
		if len(entries) == 0 {
			fmt.Println("No repository history yet.")
			return nil
		}

		table := tablewriter.NewTable(os.Stdout)
		table.Header("Repository", "Last Used")
		for _, entry := range entries {
			table.Append(entry.Source, entry.LastUsedAt.Format(historyDateFormat))
		}
		return table.Render()
	},
}
