package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("config file:", viper.ConfigFileUsed())
		fmt.Println("github_token:", maskToken(viper.GetString("github_token")))
		fmt.Println("git_binary:", viper.GetString("git_binary"))
		fmt.Println("debounce_ms:", viper.GetInt("debounce_ms"))
	},
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****"
}
