package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/replay-engine/internal/config"
	"github.com/jwebster45206/replay-engine/internal/events"
	"github.com/jwebster45206/replay-engine/internal/handlers"
	"github.com/jwebster45206/replay-engine/internal/logger"
	"github.com/jwebster45206/replay-engine/internal/middleware"
	"github.com/jwebster45206/replay-engine/internal/queue"
	"github.com/jwebster45206/replay-engine/internal/storage"
	"github.com/jwebster45206/replay-engine/pkg/parser"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Replay Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend)

	store, err := storage.Open(cfg.StorageBackend, cfg.RedisURL, cfg.SQLitePath, cfg.RecordTTL, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// The queue is optional; without it only synchronous parsing is served.
	var enqueuer handlers.Enqueuer
	var queuePinger handlers.Pinger
	var broadcaster *events.Broadcaster
	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Warn("Queue unavailable, async parsing disabled", "error", err)
	} else {
		defer func() {
			if err := queueClient.Close(); err != nil {
				log.Error("Error closing queue client", "error", err)
			}
		}()
		enqueuer = queue.NewParseQueue(queueClient, cfg.ParseQueue)
		queuePinger = queueClient
		broadcaster = events.NewBroadcaster(queueClient.Redis(), log)
	}

	p := parser.New(log)

	router := handlers.NewRouter(
		handlers.NewHealthHandler(store, queuePinger, log),
		handlers.NewReplayHandler(p, store, enqueuer, log).WithEvents(broadcaster),
	)

	handler := middleware.Logger(log, router)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
