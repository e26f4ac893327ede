package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bank-ledger-core/config"
	kafkaEvents "bank-ledger-core/internal/adapter/events/kafka"
	httpHandler "bank-ledger-core/internal/adapter/http/handler"
	memStorage "bank-ledger-core/internal/adapter/storage/memory"
	pgStorage "bank-ledger-core/internal/adapter/storage/postgres"
	redisStorage "bank-ledger-core/internal/adapter/storage/redis"
	"bank-ledger-core/internal/core/ports"
	"bank-ledger-core/internal/service"
	"bank-ledger-core/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("backend", cfg.Ledger.Backend).
		Str("version", cfg.Ledger.Version).
		Msg("Starting ledger service")

	ctx := context.Background()

	// Ledger store: PostgreSQL in production, in-memory for local runs.
	var (
		store          ports.LedgerStore
		healthCheckers []ports.HealthChecker
	)
	switch cfg.Ledger.Backend {
	case "memory":
		store = memStorage.NewLedgerStore(cfg.Ledger.LocalRoutingNum)
		log.Warn().Msg("Using in-memory ledger store, entries will not survive a restart")
	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")
		store = pgStorage.NewLedgerStore(pool, cfg.Ledger.LocalRoutingNum)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	}

	// Redis: reader watermark persistence.
	var watermarks ports.WatermarkStore
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, reader will cold-start after restarts")
	} else {
		defer rdb.Close()
		watermarks = redisStorage.NewWatermarkStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
		log.Info().Msg("Redis connected")
	}

	// Kafka: downstream entry stream, optional.
	var publisher ports.EntryPublisher
	if cfg.Kafka.Enabled {
		kp := kafkaEvents.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}

	// Core services
	validator := service.NewValidator(cfg.Ledger.LocalRoutingNum, cfg.Ledger.MaxTransactionAmount)
	cache, err := service.NewBalanceCacheService(store, cfg.Ledger.LocalRoutingNum, cfg.Ledger.CacheSize, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize balance cache")
	}
	writer := service.NewWriterService(validator, store, cache, publisher, cfg.Ledger.LocalRoutingNum, log)
	reader := service.NewReaderService(store, cache, watermarks, cfg.Ledger.PollInterval, cfg.Ledger.PollBatchSize, log)
	healthCheckers = append(healthCheckers, httpHandler.NewReaderHealth(reader))

	// Start the polling reader.
	readerCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()
	go reader.Run(readerCtx)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Writer:          writer,
		Cache:           cache,
		LocalRoutingNum: cfg.Ledger.LocalRoutingNum,
		JWTSecret:       []byte(cfg.JWT.Secret),
		Version:         cfg.Ledger.Version,
		HealthCheckers:  healthCheckers,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopReader()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
