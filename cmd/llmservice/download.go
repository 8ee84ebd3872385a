package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacesedan/llmservice/config"
	"github.com/spacesedan/llmservice/internal/modelloader"
)

func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch local classification models",
		Long: `Downloads the ONNX exports of MINI_MODEL_1 and MINI_MODEL_2 into HUGOT_MODEL_DIR.
Only models whose task uses the hugot backend are fetched unless --all is set.`,
		RunE: runDownload,
	}

	cmd.Flags().Bool("all", false, "Download every classification model regardless of backend")

	return cmd
}

func runDownload(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	paths, err := modelloader.DownloadModels(cfg, all)
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	if err != nil {
		return fmt.Errorf("download models: %w", err)
	}
	if len(paths) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No task uses the hugot backend; pass --all to download anyway")
	}
	return nil
}
