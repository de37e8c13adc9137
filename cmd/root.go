package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "gitea-reporter",
	Short: "Scheduled Gitea activity reports delivered to a webhook",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(migrateCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
