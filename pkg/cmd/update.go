package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var updateAll bool

func init() {
	updateCmd.Flags().BoolVar(&updateAll, "all", false, "update every skill with an available update")
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(checkCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update [skill]",
	Short: "Apply upstream updates to installed skills",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if updateAll {
			return executeUpdateAll(cmd.Context())
		}
		if len(args) != 1 {
			return fmt.Errorf("name a skill or pass --all")
		}
		return executeUpdateOne(cmd.Context(), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [skill]",
	Short: "Check installed skills for upstream updates",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeCheck(cmd.Context(), args)
	},
}

func executeUpdateOne(ctx context.Context, skill string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	res, err := eng.CheckUpdate(ctx, skill)
	if err != nil {
		return err
	}
	if !res.HasUpdate {
		fmt.Printf("'%s' is up to date\n", skill)
		return nil
	}
	if err := eng.Update(ctx, skill); err != nil {
		return err
	}
	fmt.Println(color.GreenString("Updated '%s'", skill))
	return nil
}

func executeUpdateAll(ctx context.Context) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	results, err := eng.CheckUpdates(ctx)
	if err != nil {
		return err
	}

	updated, failed := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Println(color.YellowString("Check failed for '%s': %v", res.SkillID, res.Err))
			continue
		}
		if !res.HasUpdate {
			continue
		}
		if err := eng.Update(ctx, res.SkillID); err != nil {
			failed++
			fmt.Println(color.YellowString("Update failed for '%s': %v", res.SkillID, err))
			continue
		}
		updated++
	}

	fmt.Printf("Updated %d skill(s), %d failure(s), %d checked\n", updated, failed, len(results))
	return nil
}

func executeCheck(ctx context.Context, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		res, err := eng.CheckUpdate(ctx, args[0])
		if err != nil {
			return err
		}
		if res.HasUpdate {
			fmt.Println(color.GreenString("Update available for '%s'", res.SkillID))
		} else {
			fmt.Printf("'%s' is up to date\n", res.SkillID)
		}
		return nil
	}

	results, err := eng.CheckUpdates(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No skills with a registry entry.")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("Skill", "Status")
	for _, res := range results {
		status := "up to date"
		if res.Err != nil {
			status = fmt.Sprintf("error: %v", res.Err)
		} else if res.HasUpdate {
			status = "update available"
		}
		table.Append(res.SkillID, status)
	}
	return table.Render()
}
