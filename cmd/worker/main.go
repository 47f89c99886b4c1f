package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/storyarc/internal/app"
	"github.com/jwebster45206/storyarc/internal/config"
	"github.com/jwebster45206/storyarc/internal/logger"
	"github.com/jwebster45206/storyarc/internal/telemetry"
	"github.com/jwebster45206/storyarc/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting StoryArc Worker",
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"storage_backend", cfg.StorageBackend)

	shutdownTracing, err := telemetry.Setup(context.Background(), "storyarc-worker", cfg.OTelEndpoint)
	if err != nil {
		log.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer startCancel()
	// The worker has nothing to do without the queue.
	a, err := app.Build(startCtx, cfg, log, true)
	if err != nil {
		log.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	w := worker.New(a.Queue, a.Orchestrator, a.Broadcaster, log, cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Let an in-flight chapter finish and be saved.
	select {
	case <-done:
	case <-time.After(time.Minute):
		log.Warn("Worker did not stop in time")
	}

	stats := w.Stats()
	log.Info("Worker stopped",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"requeued", stats.Requeued)

	if err := a.Close(); err != nil {
		log.Error("Error closing connections", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	log.Info("Worker exited")
}
