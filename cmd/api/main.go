package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prefill/infrastructure/config"
	"prefill/infrastructure/di"
	"prefill/interfaces/http/rest"

	"go.uber.org/zap"
)

const metricsFlushInterval = time.Minute

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	if cfg.JWTSecret == "" {
		container.Logger.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	// Background workers
	go container.Sessions.Run(ctx, cfg.SessionSweepInterval)
	if container.Metrics != nil {
		go container.Metrics.Run(ctx, metricsFlushInterval)
	}

	// Create router
	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.Sessions,
		container.Collector,
		container.Tracer,
		container.Validator,
		container.RateLimiter,
		rest.RouterConfig{
			EnableCORS:     cfg.EnableCORS,
			AllowedOrigins: cfg.AllowedOrigins,
			Debug:          cfg.IsDevelopment(),
		},
		container.Logger,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router.Setup(),
		// Canvas requests may wait for the upstream fetch
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("blueprintServer", cfg.BlueprintServerURL),
			zap.Strings("configSources", cfg.LoadedFrom),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	// Stop background workers, then release resources
	cancel()
	if err := container.Close(shutdownCtx); err != nil {
		container.Logger.Warn("Failed to release resources", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
