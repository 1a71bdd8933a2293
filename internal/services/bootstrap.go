package services

import (
	"context"
	"fmt"

	"github.com/soltixdb/tankwatch/internal/cache"
	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/contextprovider"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/queue"
	"github.com/soltixdb/tankwatch/internal/source"
)

// Dependencies holds the backends an AnalysisService runs on.
type Dependencies struct {
	Source   source.Source
	Provider contextprovider.Provider
	Cache    cache.Cache
	Queue    queue.Queue
}

// OpenDependencies connects every backend selected by cfg. On failure the
// backends opened so far are closed again.
func OpenDependencies(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	logger.Info("Opening reading source", "type", cfg.Source.Type)
	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	deps.Source = src

	logger.Info("Opening context provider", "type", cfg.Context.Type)
	provider, err := contextprovider.New(cfg.Context, cfg.Etcd, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("context provider: %w", err)
	}
	deps.Provider = provider

	logger.Info("Opening result cache", "type", cfg.Cache.Type, "ttl", cfg.Cache.TTL)
	resultCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}
	deps.Cache = resultCache

	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	q, err := queue.NewQueue(cfg.Queue, logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("queue: %w", err)
	}
	deps.Queue = q

	return deps, nil
}

// NewAnalysisService builds the service on top of the opened backends.
func (d *Dependencies) NewAnalysisService(cfg config.Config, logger *logging.Logger) *AnalysisService {
	return NewAnalysisService(logger, d.Source, d.Provider, d.Cache, d.Queue, cfg.Engine, cfg.Worker)
}

// Close releases every opened backend, newest first.
func (d *Dependencies) Close() {
	if d.Queue != nil {
		_ = d.Queue.Close()
	}
	if d.Cache != nil {
		_ = d.Cache.Close()
	}
	if d.Provider != nil {
		_ = d.Provider.Close()
	}
	if d.Source != nil {
		d.Source.Close()
	}
}
