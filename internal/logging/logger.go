package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spacesedan/llmservice/config"
)

// InitLogger installs the default slog logger. Console output is colored with
// tint; when a log file is configured, records go as JSON to both stdout and a
// rotating file instead. The returned func closes the file sink.
func InitLogger(cfg config.LogConfig) func() {
	level := ParseLevel(cfg.Level)

	if cfg.File == "" {
		handler := tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		})
		slog.SetDefault(slog.New(handler))
		return func() {}
	}

	logFile := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, logFile), &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	slog.SetDefault(slog.New(handler))

	return func() {
		_ = logFile.Close()
	}
}

// ParseLevel maps debug/info/warn/error onto a slog level, falling back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
