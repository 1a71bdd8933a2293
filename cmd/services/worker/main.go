package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/utils"
	"github.com/soltixdb/tankwatch/internal/worker"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	sweepOnce := flag.Bool("sweep-once", false, "Enqueue one sweep over all assets at startup")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Recommendation worker starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), utils.ConnectTimeout)
	deps, err := services.OpenDependencies(connectCtx, *cfg, logger)
	connectCancel()
	if err != nil {
		logger.Fatal("Failed to open dependencies", "error", err)
	}
	defer deps.Close()

	if cfg.Queue.Type == "" || cfg.Queue.Type == string(utils.QueueTypeMemory) {
		logger.Warn("Memory queue only sees events published by this process")
	}

	analysis := deps.NewAnalysisService(*cfg, logger)
	w := worker.New(logger, deps.Queue, analysis, deps.Source, cfg.Worker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start worker", "error", err)
	}

	if *sweepOnce {
		n, err := w.Sweep(ctx)
		if err != nil {
			logger.Error("Initial sweep failed", "error", err)
		} else {
			logger.Info("Initial sweep enqueued", "assets", n)
		}
	}

	// Wait for interrupt signal to gracefully shutdown the worker
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	if err := w.Stop(); err != nil {
		logger.Error("Worker stop failed", "error", err)
	}

	stats := w.Stats()
	logger.Info("Worker exited",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"invalid", stats.Invalid)
}
