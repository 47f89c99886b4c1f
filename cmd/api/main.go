package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/storyarc/internal/app"
	"github.com/jwebster45206/storyarc/internal/config"
	"github.com/jwebster45206/storyarc/internal/handlers"
	"github.com/jwebster45206/storyarc/internal/logger"
	"github.com/jwebster45206/storyarc/internal/middleware"
	"github.com/jwebster45206/storyarc/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting StoryArc API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"storage_backend", cfg.StorageBackend)

	shutdownTracing, err := telemetry.Setup(context.Background(), "storyarc-api", cfg.OTelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()
	a, err := app.Build(startCtx, cfg, log, false)
	if err != nil {
		log.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	var (
		enqueuer handlers.Enqueuer
		notifier handlers.QueuedNotifier
	)
	// Assigned only when non-nil so the handler sees a nil interface.
	if a.Queue != nil {
		enqueuer = a.Queue
		notifier = a.Broadcaster
	}

	handler := handlers.NewRouter(handlers.Router{
		Health:    handlers.NewHealthHandler(a.Storage, log),
		Stories:   handlers.NewStoryHandler(a.Orchestrator, enqueuer, notifier, log),
		Events:    handlers.NewEventsHandler(a.Broadcaster, log),
		WebSocket: handlers.NewWebSocketHandler(a.Broadcaster, middleware.OriginChecker(cfg.CORSOrigins), log),
		Origins:   cfg.CORSOrigins,
		Logger:    log,
	})

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: event streams stay open and chapter generation can be slow.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := a.Close(); err != nil {
		log.Error("Error closing connections", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Server exited")
}
