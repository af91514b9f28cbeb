package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "assproc",
		Short:         "Batch font embedding for subtitle files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Secrets (Gemini API keys) live in the environment, not the
			// config file. A missing .env is fine.
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "config.yaml", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newWatchCommand(&configFlag))
	rootCmd.AddCommand(newCheckCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
