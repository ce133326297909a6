package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/skilldeck/skilldeck/internal/types"
)

const (
	colName   = "Name"
	colScope  = "Scope"
	colTools  = "Tools"
	colSource = "Source"
	emptyMsg  = "No skills installed yet."
	usageHint = "Use 'skilldeck install <owner/repo>' to install skills."
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every discovered skill and where it is installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeList(cmd.Context())
	},
}

func executeList(ctx context.Context) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	skills, err := eng.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan skills: %w", err)
	}

	if len(skills) == 0 {
		fmt.Println(emptyMsg)
		fmt.Println(usageHint)
		return nil
	}

	cnf := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(cnf))
	table.Header(colName, colScope, colTools, colSource)

	for _, skill := range skills {
		table.Append(skill.DisplayName(), scopeLabel(skill.Scope), toolsLabel(skill.Installations), sourceLabel(skill.Lock))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	fmt.Printf("\nTotal: %d skills\n", len(skills))
	return nil
}

func scopeLabel(scope types.Scope) string {
	switch scope.Kind {
	case types.ScopeSharedGlobal:
		return "shared"
	case types.ScopeToolLocal:
		return scope.Tool
	case types.ScopeProject:
		return "project"
	default:
		return "?"
	}
}

func toolsLabel(installations []types.Installation) string {
	var parts []string
	for _, inst := range installations {
		label := inst.Tool
		if inst.Inherited {
			label = fmt.Sprintf("%s (via %s)", inst.Tool, inst.InheritedFrom)
		}
		parts = append(parts, label)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func sourceLabel(lock *types.LockEntry) string {
	if lock == nil {
		return "-"
	}
	return lock.Source
}
