package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skilldeck/skilldeck/internal/githubapi"
	"github.com/skilldeck/skilldeck/internal/gitclient"
)

func init() {
	rootCmd.AddCommand(browseCmd)
}

var browseCmd = &cobra.Command{
	Use:   "browse <owner/repo>",
	Short: "List the skills a GitHub repository offers, without cloning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := gitclient.ParseSource(args[0])
		if err != nil {
			return err
		}
		if source.Type != "github" {
			return fmt.Errorf("browse only supports GitHub repositories")
		}
		parts := strings.SplitN(source.Name, "/", 2)

		client := githubapi.NewClient(viper.GetString("github_token"))
		skills, err := client.ListSkills(cmd.Context(), parts[0], parts[1])
		if err != nil {
			return err
		}

		fmt.Printf("Skills in %s:\n", source.Name)
		for _, name := range skills {
			fmt.Printf("  %s\n", name)
		}
		fmt.Printf("\nUse 'skilldeck install %s' to install.\n", source.Name)
		return nil
	},
}
