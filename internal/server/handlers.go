package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/llmservice/internal/models"
	"github.com/spacesedan/llmservice/internal/services"
)

// Prefixes of the 500 detail message, one per task.
const (
	summarizeErrorPrefix  = "Error summarizing text"
	categorizeErrorPrefix = "Error categorizing text"
	sentimentErrorPrefix  = "Error analyzing sentiment"
)

const promptField = "prompt"

func summarizeHandler(svc Summarizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SummarizationRequest
		if !bindPrompt(c, &req) {
			return
		}

		summary, err := svc.SummarizeText(c.Request.Context(), *req.Prompt)
		if err != nil {
			inferenceFailed(c, summarizeErrorPrefix, err)
			return
		}
		c.JSON(http.StatusOK, models.SummarizationResponse{Summary: summary})
	}
}

func categorizeHandler(svc Categorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CategorizationRequest
		if !bindPrompt(c, &req) {
			return
		}

		category, err := svc.CategorizeText(c.Request.Context(), *req.Prompt)
		if err != nil {
			inferenceFailed(c, categorizeErrorPrefix, err)
			return
		}
		c.JSON(http.StatusOK, models.CategorizationResponse{Category: category})
	}
}

func sentimentHandler(svc SentimentAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SentimentAnalysisRequest
		if !bindPrompt(c, &req) {
			return
		}

		sentiment, err := svc.AnalyzeSentiment(c.Request.Context(), *req.Prompt)
		if err != nil {
			inferenceFailed(c, sentimentErrorPrefix, err)
			return
		}
		c.JSON(http.StatusOK, models.SentimentAnalysisResponse{Sentiment: sentiment})
	}
}

func healthHandler(health HealthReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:    "ok",
			Version:   Version,
			Pipelines: map[string]bool{},
		}
		if health != nil {
			resp.Pipelines = health.Status()
		}
		for _, ok := range resp.Pipelines {
			if !ok {
				resp.Status = "degraded"
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

func statsHandler(usage UsageReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if usage == nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: services.ErrUsageDisabled.Error()})
			return
		}

		counts, err := usage.Snapshot(c.Request.Context())
		if errors.Is(err, services.ErrUsageDisabled) {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: err.Error()})
			return
		}
		if err != nil {
			slog.Error("[Router] Failed to read usage counters", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "Error reading usage: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}

// bindPrompt decodes the body into req and answers 422 when it does not have
// a string prompt. The key must match exactly; struct binding alone would
// accept any casing of it.
func bindPrompt(c *gin.Context, req any) bool {
	var fields map[string]json.RawMessage
	if err := c.ShouldBindBodyWithJSON(&fields); err != nil {
		rejectBody(c, err.Error())
		return false
	}
	if _, ok := fields[promptField]; !ok {
		rejectBody(c, `field "prompt" is required`)
		return false
	}
	if err := c.ShouldBindBodyWithJSON(req); err != nil {
		rejectBody(c, err.Error())
		return false
	}
	return true
}

func rejectBody(c *gin.Context, reason string) {
	c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: "Invalid request body: " + reason})
}

func inferenceFailed(c *gin.Context, prefix string, err error) {
	slog.Error("[Router] Inference failed",
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: prefix + ": " + err.Error()})
}

func recoverPanic(c *gin.Context, recovered any) {
	slog.Error("[Router] Recovered from panic",
		slog.String("path", c.Request.URL.Path),
		slog.Any("panic", recovered))
	c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Detail: "Internal Server Error"})
}
