// salonpost-service is the HTTP API server and worker pool for posting
// style entries to the salon portal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"salonpost/internal/api"
	"salonpost/internal/artifacts"
	"salonpost/internal/browser"
	"salonpost/internal/config"
	"salonpost/internal/credentials"
	"salonpost/internal/dispatcher"
	"salonpost/internal/engine"
	"salonpost/internal/health"
	"salonpost/internal/job"
	"salonpost/internal/observability"
	"salonpost/internal/selectors"
	"salonpost/internal/worker"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration
	svcCfg := config.LoadServiceConfig()
	workerCfg := config.LoadWorkerConfig()
	dispatcherCfg := dispatcher.LoadConfigFromEnv()
	browserCfg := browser.Config{
		ChromePath: config.GetEnv("CHROME_PATH", ""),
		Headless:   config.GetBoolEnv("BROWSER_HEADLESS", true),
		SlowMo:     config.GetDurationEnv("BROWSER_SLOWMO", 0),
	}

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Load and validate the portal selector configuration
	sel, err := selectors.Load(svcCfg.SelectorsPath)
	if err != nil {
		return err
	}
	slog.Info("Selectors loaded", "path", svcCfg.SelectorsPath)

	// Connect to the job database
	db, err := gorm.Open(postgres.Open(svcCfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	store, err := job.NewGormStore(db)
	if err != nil {
		return err
	}
	slog.Info("Connected to job database")

	// Credential store with encryption at rest
	cipher, err := credentials.NewCipher(svcCfg.SecretKeyHex)
	if err != nil {
		return err
	}
	credStore, err := credentials.NewStore(db, cipher)
	if err != nil {
		return err
	}

	// Artifact store for per-job logs and failure screenshots
	artifactStore, err := artifacts.NewStore(svcCfg.ArtifactDir)
	if err != nil {
		return err
	}

	// Webhook dispatcher
	eventDispatcher := dispatcher.NewMemory(dispatcherCfg, metrics)

	// Posting engine and worker pool
	eng := engine.New(sel, artifactStore, slog.With("component", "engine"))
	runner := worker.NewBrowserRunner(eng, browserCfg)
	pool := worker.NewPool(store, credStore, runner, artifactStore, eventDispatcher, metrics, workerCfg)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	pool.Start(workerCtx)

	// Create health checker
	healthChecker := health.NewChecker(store)

	// Create job service
	jobService := job.NewService(store, metrics)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		JobService:    jobService,
		Accounts:      credStore,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		APIKey:        svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		stopWorkers()
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	// Wait for load balancers to stop sending traffic
	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: Stop the worker pool. In-flight jobs observe the
	// cancellation at their next row boundary and park as INTERRUPTED;
	// they resume from their completed offset on the next start.
	slog.Info("Stopping worker pool")
	stopWorkers()
	poolDone := make(chan struct{})
	go func() {
		pool.Wait()
		close(poolDone)
	}()
	select {
	case <-poolDone:
	case <-time.After(2 * time.Minute):
		slog.Warn("Worker pool did not stop in time")
	}

	// Phase 4: Drain the webhook dispatcher
	slog.Info("Draining webhook dispatcher")
	dispatcherCtx, dispatcherCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dispatcherCancel()
	if err := eventDispatcher.Close(dispatcherCtx); err != nil {
		slog.Warn("Dispatcher shutdown error", "error", err)
	}

	// Log final dispatcher stats
	stats := eventDispatcher.Stats()
	slog.Info("Dispatcher stats",
		"delivered", stats.Delivered,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)

	slog.Info("Shutdown complete")
	return nil
}
