package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digest_server/config"
	"digest_server/core/domain"
	"digest_server/internal/bootstrap"
	"digest_server/pkg/logger"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize logger early
	logger.Init(logger.Config{
		Level:   logger.LevelInfo,
		Service: "digest",
	})

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	mode := flag.String("mode", "serve", "Run mode: serve, batch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	switch *mode {
	case "serve":
		runAPI(cfg)
	case "batch":
		runBatch(cfg)
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(cfg *config.Config) {
	ctx := context.Background()
	app, err := bootstrap.NewAPI(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- app.Shutdown()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Error("Error shutting down: %v", err)
			} else {
				logger.Info("API server shut down gracefully")
			}
		case <-shutdownCtx.Done():
			logger.Warn("API shutdown timed out, forcing exit")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

func runBatch(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, true)
	if err != nil {
		logger.Fatal("Failed to initialize batch dependencies: %v", err)
	}

	report, err := deps.Service.RunBatch(ctx)
	if err != nil {
		logger.Fatal("Batch run failed: %v", err)
	}

	logger.WithFields(map[string]any{
		"summarized":         report.Count(domain.OutcomeSummarized),
		"already_summarized": report.Count(domain.OutcomeAlreadySummarized),
		"not_allowed":        report.Count(domain.OutcomeNotAllowed),
		"failed":             report.Count(domain.OutcomeFailed),
	}).Info("Batch run complete")

	if report.Count(domain.OutcomeFailed) > 0 {
		os.Exit(1)
	}
}
