package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/broker"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/job-queue/pkg/worker"
	"github.com/abdul-hamid-achik/resize.cheap/internal/config"
	"github.com/abdul-hamid-achik/resize.cheap/internal/health"
	"github.com/abdul-hamid-achik/resize.cheap/internal/jobs"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/resize.cheap/internal/results"
	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
	"github.com/abdul-hamid-achik/resize.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
	"github.com/abdul-hamid-achik/resize.cheap/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Init(cfg.LogLevel)
	log := logger.Default()

	log.Info("configuration loaded", "environment", cfg.Environment, "version", version.Short())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queueLevel, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || queueLevel == zerolog.NoLevel {
		queueLevel = zerolog.InfoLevel
	}
	zerologger := zerolog.New(os.Stdout).Level(queueLevel).With().
		Timestamp().
		Str("service", "resize-worker").
		Logger()

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    "resize-worker",
		ServiceVersion: version.Short(),
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRate:     cfg.OTelSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	log.Info("connecting to object storage")
	store, err := storage.NewMinIOStorage(&storage.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		Region:    cfg.MinIORegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	log.Info("object storage connected")

	log.Info("connecting to redis")
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	b := broker.NewRedisStreamsBroker(redisClient,
		broker.WithWorkerID(fmt.Sprintf("worker-%d", os.Getpid())),
	)
	log.Info("broker initialized")

	metrics.SetAppInfo(version.Short(), cfg.Environment, "worker")
	metrics.SetWorkerPoolSize(cfg.WorkerConcurrency)

	instrumentedStore := metrics.NewInstrumentedStorage(store)

	transformer, err := transform.NewTransformer(cfg.Transform, nil)
	if err != nil {
		return fmt.Errorf("failed to create transformer: %w", err)
	}

	deps := &jobs.Dependencies{
		Storage:     instrumentedStore,
		Results:     results.NewRedisStore(redisClient, cfg.ResultTTL),
		Transformer: transformer,
		Observer:    metrics.ObserveTransform,
	}

	log.Info("registering job handlers")
	registry := worker.NewRegistry()
	if err := registry.Register(jobs.TypeTransform, jobs.TransformHandler(deps)); err != nil {
		return fmt.Errorf("failed to register handler: %w", err)
	}
	log.Info("handlers registered", "count", len(registry.Types()))

	registry.Use(
		middleware.RecoveryMiddleware(zerologger),
		middleware.LoggingMiddleware(zerologger),
		middleware.TimeoutMiddleware(cfg.JobTimeout),
		middleware.MetricsMiddleware(metrics.NewQueueCollector()),
	)

	log.Info("creating worker pool", "concurrency", cfg.WorkerConcurrency)

	workerPool := worker.NewPool(b, registry,
		worker.WithConcurrency(cfg.WorkerConcurrency),
		worker.WithPoolQueues([]string{"default"}),
		worker.WithPoolPollInterval(time.Second),
		worker.WithShutdownTimeout(30*time.Second),
		worker.WithPoolLogger(zerologger),
	)

	checker := health.NewChecker(version.Short()).
		WithRedis(redisClient).
		WithStorage(instrumentedStore).
		WithTransformer(transformer)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/health", health.LivenessHandler())
	metricsMux.HandleFunc("/health/ready", health.ReadinessHandler(checker))

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("metrics server starting", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	poolErr := make(chan error, 1)
	go func() {
		log.Info("starting worker pool")
		poolErr <- workerPool.Start(ctx)
	}()

	select {
	case err := <-poolErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker pool error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := workerPool.Stop(shutdownCtx); err != nil {
			log.Error("error stopping pool", "error", err)
		}

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("error stopping metrics server", "error", err)
		}

		cancel()
	}

	log.Info("worker pool stopped gracefully")
	return nil
}
