package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skilldeck/skilldeck/internal/engine"
	"github.com/skilldeck/skilldeck/internal/gitclient"
	"github.com/skilldeck/skilldeck/internal/paths"
)

var rootCmd = &cobra.Command{
	Use:   "skilldeck",
	Short: "Manage AI coding-assistant skills from a single shared store",
	Long: "skilldeck keeps one canonical skill store under ~/.agents/skills and\n" +
		"exposes it to every supported tool through symlinks, tracking upstream\n" +
		"updates via git tree hashes.",

	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},

	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

// newEngine wires an engine against the real home directory and the
// configured git binary.
func newEngine() (*engine.Engine, error) {
	pr, err := paths.NewResolver()
	if err != nil {
		return nil, err
	}

	var git *gitclient.Client
	if bin := viper.GetString("git_binary"); bin != "" {
		git = gitclient.NewClientWithBinary(bin)
	} else {
		git = gitclient.NewClient()
	}

	eng := engine.New(pr, git)
	eng.SetLogger(cliLogger{})
	return eng, nil
}

// cliLogger surfaces warnings and errors on stderr; debug and info stay
// quiet in normal CLI use.
type cliLogger struct{}

func (cliLogger) Debug(msg string, fields ...interface{}) {}
func (cliLogger) Info(msg string, fields ...interface{})  {}

func (cliLogger) Warn(msg string, fields ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("Warning: %s %s", msg, formatFields(fields)))
}

func (cliLogger) Error(msg string, err error, fields ...interface{}) {
	fmt.Fprintln(os.Stderr, color.RedString("Error: %s: %v %s", msg, err, formatFields(fields)))
}

func formatFields(fields []interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	out := ""
	for i := 0; i+1 < len(fields); i += 2 {
		out += fmt.Sprintf("%v=%v ", fields[i], fields[i+1])
	}
	return out
}
