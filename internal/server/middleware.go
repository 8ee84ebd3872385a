package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= 500:
			slog.Error("[Router] Request failed", attrs...)
		case status >= 400:
			slog.Warn("[Router] Request rejected", attrs...)
		default:
			slog.Info("[Router] Request served", attrs...)
		}
	}
}
