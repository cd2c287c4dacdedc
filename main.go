package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Alexjoshwa/agri-1.0/internal/api"
	"github.com/Alexjoshwa/agri-1.0/internal/api/middleware"
	"github.com/Alexjoshwa/agri-1.0/internal/app"
	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/platform/logger"
	"github.com/Alexjoshwa/agri-1.0/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	defer func() { _ = zapLogger.Sync() }()
	sugar := zapLogger.Sugar()

	if cfg.RunMode == "bg" && !cfg.TasksEnabled {
		sugar.Fatal("Run mode 'bg' requires TASKS_ENABLED=true")
	}

	application, err := app.Build(cfg, sugar)
	if err != nil {
		sugar.Fatalw("Failed to initialize application", "error", err)
	}
	defer application.Close()

	if err := application.Seed(context.Background()); err != nil {
		sugar.Fatalw("Failed to seed store", "error", err)
	}

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1)

	// Start Service API (always runs)
	serviceRouter := api.SetupServiceRouter(application.Services.Admin, application.Metrics, shutdownChan, sugar)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sugar.Infow("Service API listening", "port", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("Service API ListenAndServe error", "error", err)
		}
		sugar.Info("Service API server stopped")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var rateLimiter *middleware.RateLimiterMiddleware
	var backgroundTaskSrv *asynq.Server

	sugar.Infow("Starting application", "mode", cfg.RunMode, "store", cfg.StoreBackend)

	apiMode := func() {
		var mainApiRouter http.Handler
		mainApiRouter, rateLimiter = api.SetupRouter(cfg, application.Services, application.TaskEnqueuer(), application.Metrics, sugar)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sugar.Infow("Main API listening", "port", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				sugar.Fatalw("Main API ListenAndServe error", "error", err)
			}
			sugar.Info("Main API server stopped")
		}()
	}

	bgMode := func() {
		if !cfg.TasksEnabled {
			sugar.Info("TASKS_ENABLED is false; background worker not started")
			return
		}
		var mux *asynq.ServeMux
		backgroundTaskSrv, mux = tasks.SetupServer(application.Redis, application.TaskProcessor, true)
		if backgroundTaskSrv == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sugar.Info("Background task server starting")
			if err := backgroundTaskSrv.Run(mux); err != nil {
				sugar.Fatalw("Background task server error", "error", err)
			}
			sugar.Info("Background task server stopped")
		}()

		// Give any orders written before their conversation existed a thread.
		if _, err := application.TaskClient.Enqueue(tasks.NewOrderThreadsRepairTask()); err != nil {
			sugar.Warnw("Failed to enqueue order thread repair", "error", err)
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		sugar.Fatalw("Invalid run mode", "mode", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		sugar.Infow("Received signal, shutting down gracefully", "signal", sig.String())
	case <-shutdownChan:
		sugar.Info("Shutdown requested via Service API, shutting down gracefully")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		sugar.Warnw("Service API server shutdown error", "error", err)
	}

	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			sugar.Warnw("Main API server shutdown error", "error", err)
		}
		rateLimiter.Stop()
	}

	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	sugar.Info("Waiting for servers to stop")
	wg.Wait()

	sugar.Info("Server gracefully stopped")
}
