package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skilldeck/skilldeck/internal/watch"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch skill directories and refresh on changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		pr := eng.Paths()
		dirs := []string{pr.SharedRoot()}
		for _, tool := range pr.Tools() {
			if pr.IsSharedRoot(tool) {
				continue
			}
			dirs = append(dirs, pr.SkillsDir(tool))
		}

		debounce := time.Duration(viper.GetInt("debounce_ms")) * time.Millisecond
		watcher, err := watch.New(dirs, debounce, func(ctx context.Context) {
			if eng.TryRefresh(ctx) {
				fmt.Println("Refreshed skill index")
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Println("Watching for skill changes. Press Ctrl+C to stop.")
		watcher.Run(ctx)
		return nil
	},
}
