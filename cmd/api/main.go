package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lifetree-backend/infrastructure/config"
	"lifetree-backend/infrastructure/di"
	"lifetree-backend/pkg/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	var tracer *observability.Tracer
	if cfg.EnableTracing {
		tracer, err = observability.InitTracing(observability.TracingConfig{
			Environment: cfg.Environment,
			Endpoint:    cfg.TracingEndpoint,
		})
		if err != nil {
			logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	// Hot-reload physics tuning while the server runs.
	var watcher *config.TuningWatcher
	if cfg.TuningFile != "" {
		watcher, err = config.NewTuningWatcher(cfg.TuningFile, container.Manager.ApplyTuning, logger)
		if err != nil {
			logger.Fatal("Failed to watch tuning file", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      container.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	// Stop accepting frames before the sessions that produce them.
	container.StreamHub.Close()
	container.Manager.Stop()
	if container.ExpandLimiter != nil {
		container.ExpandLimiter.Stop()
	}
	if watcher != nil {
		watcher.Stop()
	}
	if tracer != nil {
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Tracer shutdown error", zap.Error(err))
		}
	}

	if err := logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
