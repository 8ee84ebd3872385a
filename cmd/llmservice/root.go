package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spacesedan/llmservice/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "llmservice",
		Short:         "HTTP facade over summarization, categorization and sentiment models",
		Long:          `Loads one model per task at startup and serves them over a small JSON API.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			env, _ := cmd.Flags().GetString("env")
			config.LoadEnv(env)
		},
		RunE: runServe,
	}

	rootCmd.PersistentFlags().String("env", os.Getenv("APP_ENV"), "Environment file to load from config/envs (default dev)")

	rootCmd.AddCommand(
		NewServeCmd(),
		NewDownloadCmd(),
	)

	return rootCmd
}
