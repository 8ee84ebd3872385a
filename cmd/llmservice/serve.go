package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/spacesedan/llmservice/config"
	"github.com/spacesedan/llmservice/internal/clients"
	"github.com/spacesedan/llmservice/internal/logging"
	"github.com/spacesedan/llmservice/internal/modelloader"
	"github.com/spacesedan/llmservice/internal/monitoring"
	"github.com/spacesedan/llmservice/internal/server"
	"github.com/spacesedan/llmservice/internal/services"
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the models and start the HTTP server",
		Long:  `Builds every task pipeline, then serves the API until SIGINT or SIGTERM.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	closeLog := logging.InitLogger(cfg.Log)
	defer closeLog()

	if cfg.AppEnv != config.DefaultEnv {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipelines, err := modelloader.Load(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to load models", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := pipelines.Close(); err != nil {
			slog.Warn("[Main] Failed to release pipelines", slog.String("error", err.Error()))
		}
	}()

	usage, closeUsage := newUsageTracker(ctx, cfg.Valkey)
	defer closeUsage()

	monitor := monitoring.NewMonitor(pipelines.Pingers(), cfg.HealthCheckInterval)
	go monitor.Run(ctx)

	router := server.NewRouter(server.Dependencies{
		Summarizer:  services.NewSummarizationService(pipelines.Summarization, usage),
		Categorizer: services.NewCategorizationService(pipelines.Categorization, usage),
		Sentiment:   services.NewSentimentService(pipelines.Sentiment, usage),
		Usage:       usage,
		Health:      monitor,

		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	srv := server.NewWebServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("[Main] Server stopped", slog.String("error", err.Error()))
		}
		return err
	case <-ctx.Done():
		slog.Info("[Main] Shutdown signal received")
		return srv.Stop()
	}
}

// newUsageTracker connects to Valkey when configured. An unreachable store
// disables usage counting instead of blocking startup.
func newUsageTracker(ctx context.Context, cfg config.ValkeyConfig) (*services.UsageTracker, func()) {
	if !cfg.Enabled() {
		slog.Info("[Main] Usage tracking disabled, VALKEY_INIT_ADDRESS is not set")
		return nil, func() {}
	}

	vc, err := clients.NewValkeyClient(ctx, cfg)
	if err != nil {
		slog.Warn("[Main] Usage tracking disabled, Valkey is unreachable",
			slog.String("address", cfg.InitAddress),
			slog.String("error", err.Error()))
		return nil, func() {}
	}
	return services.NewUsageTracker(vc), vc.Close
}
