package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/replay-engine/internal/config"
	"github.com/jwebster45206/replay-engine/internal/logger"
	"github.com/jwebster45206/replay-engine/internal/queue"
	"github.com/jwebster45206/replay-engine/internal/storage"
	"github.com/jwebster45206/replay-engine/internal/worker"
	"github.com/jwebster45206/replay-engine/pkg/parser"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Replay Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"queue", cfg.ParseQueue,
		"storage_backend", cfg.StorageBackend)

	// Initialize queue service
	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	parseQueue := queue.NewParseQueue(queueClient, cfg.ParseQueue)
	log.Info("Queue service initialized successfully")

	store, err := storage.Open(cfg.StorageBackend, cfg.RedisURL, cfg.SQLitePath, cfg.RecordTTL, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer storageCancel()
	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage service initialized successfully")

	// Locks go through the queue's connection
	w := worker.New(parseQueue, parser.New(log), store, queueClient.Redis(), log, cfg.WorkerID)

	warmCtx, warmCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := w.Warm(warmCtx); err != nil {
		log.Warn("Failed to warm record filter", "error", err)
	}
	warmCancel()

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

	log.Info("Worker started, waiting for jobs...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give worker time to finish current job
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
