package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "drillbot",
	Short: "Multi-tenant Slack onboarding bot",
	Long: `Drillbot authorizes Slack workspaces over OAuth, keeps a per-team
registry of registered users and admins in flat files, and answers
registration commands delivered through the Events API or RTM.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".drillbot.yml", "config file path")
}
