package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/skilldeck/skilldeck/internal/installer"
)

var (
	installSkills []string
	installAgents []string
)

func init() {
	installCmd.Flags().StringSliceVar(&installSkills, "skill", nil, "skill names to install (default: all found)")
	installCmd.Flags().StringSliceVar(&installAgents, "agent", nil, "tools to link the skills into (default: last selection)")
	rootCmd.AddCommand(installCmd)
}

var installCmd = &cobra.Command{
	Use:   "install <owner/repo | url>",
	Short: "Install skills from a git repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeInstall(cmd.Context(), args[0])
	},
}

func executeInstall(ctx context.Context, source string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	flow := eng.NewInstallFlow()
	defer flow.Abort()

	fmt.Printf("Fetching %s...\n", source)
	if err := flow.Fetch(ctx, source); err != nil {
		return err
	}

	found := flow.Skills()
	selected := installSkills
	if len(selected) == 0 {
		for _, s := range found {
			selected = append(selected, s.Name)
		}
	}

	agents := installAgents
	if len(agents) == 0 {
		if last, err := eng.Lock().LastSelectedAgents(); err == nil {
			agents = last
		}
	}

	fmt.Printf("Installing %d of %d skills...\n", len(selected), len(found))
	result, err := flow.Install(ctx, selected, agents)
	if err != nil {
		return err
	}

	for _, itemErr := range result.Errors {
		fmt.Println(color.YellowString("Skipped: %v", itemErr))
	}
	if result.Installed > 0 {
		fmt.Println(color.GreenString("Installed %d skill(s)", result.Installed))
	}
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d skill(s)\n", result.Skipped)
	}

	state, _ := flow.State()
	if state != installer.StateCompleted {
		return fmt.Errorf("install flow ended in state %s", state)
	}
	return nil
}
