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
	"github.com/abdul-hamid-achik/resize.cheap/internal/api"
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

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, &tracing.Config{
		ServiceName:    "resize-api",
		ServiceVersion: version.Short(),
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRate:     cfg.OTelSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(ctx) }()
	if cfg.OTelEnabled {
		log.Info("tracing enabled", "endpoint", cfg.OTelEndpoint, "sample_rate", cfg.OTelSampleRate)
	}

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
	if err := store.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
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

	b := broker.NewRedisStreamsBroker(redisClient)
	log.Info("broker initialized")

	metrics.SetAppInfo(version.Short(), cfg.Environment, "api")

	instrumentedStore := metrics.NewInstrumentedStorage(store)
	resultStore := results.NewRedisStore(redisClient, cfg.ResultTTL)

	transformer, err := transform.NewTransformer(cfg.Transform, nil)
	if err != nil {
		return fmt.Errorf("failed to create transformer: %w", err)
	}
	transformWorker := transform.NewWorker(transformer, transform.WithObserver(metrics.ObserveTransform))

	checker := health.NewChecker(version.Short()).
		WithRedis(redisClient).
		WithStorage(instrumentedStore).
		WithTransformer(transformer)

	apiRouter := api.NewRouter(&api.Config{
		Worker:        transformWorker,
		Enqueuer:      jobs.NewEnqueuer(b, instrumentedStore, resultStore),
		Storage:       instrumentedStore,
		Results:       resultStore,
		Health:        checker,
		RedisClient:   redisClient,
		MaxUploadSize: cfg.MaxUploadSize,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateWindow,
		CORSOrigins:   cfg.CORSOrigins,
		DevMode:       cfg.IsDevelopment(),
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiRouter)

	handler := api.SecurityHeaders(metrics.HTTPMetricsMiddleware(api.Recovery(api.RequestID(api.RequestLogger(mux)))))
	if cfg.OTelEnabled {
		handler = tracing.HTTPMiddleware("resize-api")(handler)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "url", cfg.BaseURL)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			_ = server.Close()
			return fmt.Errorf("forced shutdown: %w", err)
		}

		log.Info("waiting for in-flight transforms")
		transformWorker.Close()
	}

	log.Info("server stopped gracefully")
	return nil
}
