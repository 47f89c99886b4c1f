package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/storyarc/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(cfg, os.Stdout)
}

func setup(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.IsProduction() {
		// JSON format for production
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithStoryID adds story ID to logger context
func WithStoryID(logger *slog.Logger, storyID string) *slog.Logger {
	return logger.With("story_id", storyID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
