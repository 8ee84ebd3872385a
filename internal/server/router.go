package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/llmservice/internal/models"
)

const (
	Title   = "LLM Service"
	Version = "1.0.0"

	LivenessMessage = "LLM Service is running"
)

type Summarizer interface {
	SummarizeText(ctx context.Context, prompt string) (string, error)
}

type Categorizer interface {
	CategorizeText(ctx context.Context, prompt string) (string, error)
}

type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, prompt string) (string, error)
}

type UsageReporter interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
}

type HealthReporter interface {
	Status() map[string]bool
}

// Dependencies are the task services the routes call. Usage and Health may be
// nil. Forwarding headers are only honored from TrustedProxies.
type Dependencies struct {
	Summarizer  Summarizer
	Categorizer Categorizer
	Sentiment   SentimentAnalyzer
	Usage       UsageReporter
	Health      HealthReporter

	TrustedProxies []string
}

// NewRouter mounts the task endpoints under /api next to the liveness route.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		slog.Warn("[Router] Ignoring invalid trusted proxies", slog.String("error", err.Error()))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(requestLogger(), gin.CustomRecovery(recoverPanic))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Detail: "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{Detail: "Method Not Allowed"})
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{Message: LivenessMessage})
	})
	r.GET("/healthz", healthHandler(deps.Health))

	api := r.Group("/api")
	api.POST("/summarize", summarizeHandler(deps.Summarizer))
	api.POST("/categorize", categorizeHandler(deps.Categorizer))
	api.POST("/sentiment", sentimentHandler(deps.Sentiment))
	api.GET("/stats", statsHandler(deps.Usage))

	return r
}
