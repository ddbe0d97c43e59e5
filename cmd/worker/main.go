package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kidchat/kidchat-api/internal/config"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/logger"
	"github.com/kidchat/kidchat-api/internal/queue"
	"github.com/kidchat/kidchat-api/internal/services/chat"
	"github.com/kidchat/kidchat-api/internal/workers"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker", zap.Bool("debug_mode", debugMode))

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	childRepo := database.NewChildRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	extractor := workers.NewMemoryExtractor(childRepo, chat.NewRegexExtractor(), zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := extractor.Run(ctx, jobQueue, cfg.RabbitMQPrefetch); err != nil && err != context.Canceled {
			zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		}
	}()

	zapLogger.Info("worker_started")

	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	cancel()
	<-done

	zapLogger.Info("worker_stopped")
}
