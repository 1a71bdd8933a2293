// Package worker recomputes delivery recommendations when new readings
// land. It consumes "readings updated" events and, optionally, enqueues a
// periodic sweep over every asset.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/queue"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/source"
	"github.com/soltixdb/tankwatch/internal/utils"
)

// Analyzer runs the analysis pipeline for one asset.
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error)
}

// Worker consumes readings-updated events.
type Worker struct {
	logger   *logging.Logger
	queue    queue.Queue
	analyzer Analyzer
	source   source.Source
	cfg      config.WorkerConfig

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	stats Stats
}

// Stats counts processed events.
type Stats struct {
	Processed int64
	Skipped   int64
	Failed    int64
	Invalid   int64
}

// New creates a worker. src is only used by the sweep.
func New(logger *logging.Logger, q queue.Queue, analyzer Analyzer, src source.Source, cfg config.WorkerConfig) *Worker {
	if cfg.ReadingsSubject == "" {
		cfg.ReadingsSubject = utils.SubjectReadingsUpdated
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = utils.DefaultRequestTimeout
	}
	return &Worker{
		logger:   logger.With("component", "worker"),
		queue:    q,
		analyzer: analyzer,
		source:   src,
		cfg:      cfg,
	}
}

// Start subscribes to the readings subject and starts the sweep ticker when
// a sweep interval is configured.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker already running")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)

	handler := queue.JSONHandler(w.handle, func(data []byte, err error) {
		w.mu.Lock()
		w.stats.Invalid++
		w.mu.Unlock()
		w.logger.Warn("Dropping malformed event",
			"subject", w.cfg.ReadingsSubject,
			"bytes", len(data),
			"error", err)
	})
	if err := w.queue.Subscribe(w.cfg.ReadingsSubject, handler); err != nil {
		w.cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", w.cfg.ReadingsSubject, err)
	}
	w.running = true

	if w.cfg.SweepInterval > 0 {
		w.wg.Add(1)
		go w.sweepLoop()
	}

	w.logger.Info("Worker started",
		"subject", w.cfg.ReadingsSubject,
		"sweep_interval", w.cfg.SweepInterval)
	return nil
}

// Stop unsubscribes and waits for the sweep loop to exit.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.queue.Unsubscribe(w.cfg.ReadingsSubject); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	w.logger.Info("Worker stopped")
	return nil
}

// Stats returns a snapshot of the event counters.
func (w *Worker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// handle recomputes one asset. Permanent failures (bad asset, no readings)
// are acknowledged; anything else is returned so the backend redelivers.
func (w *Worker) handle(event queue.ReadingsUpdatedEvent) error {
	if event.AssetID == "" {
		w.count(func(s *Stats) { s.Invalid++ })
		w.logger.Warn("Dropping event without asset_id")
		return nil
	}

	w.mu.Lock()
	base := w.ctx
	w.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, w.cfg.ProcessTimeout)
	defer cancel()
	ctx = logging.WithAssetID(ctx, event.AssetID)

	result, err := w.analyzer.Analyze(ctx, services.AnalysisRequest{
		AssetID: event.AssetID,
		End:     event.WindowEnd,
		Refresh: true,
	})
	if err != nil {
		var se *services.ServiceError
		if errors.As(err, &se) && se.Code != services.CodeSourceUnavailable {
			w.count(func(s *Stats) { s.Skipped++ })
			w.logger.WithContext(ctx).Warn("Skipping event", "code", se.Code, "error", err)
			return nil
		}
		w.count(func(s *Stats) { s.Failed++ })
		w.logger.WithContext(ctx).Error("Recompute failed", "error", err)
		return err
	}

	w.count(func(s *Stats) { s.Processed++ })
	w.logger.WithContext(ctx).Debug("Recommendation recomputed",
		"urgency", result.Recommendation.UrgencyLevel,
		"order_by", result.Recommendation.OrderByDate.Format("2006-01-02"))
	return nil
}

func (w *Worker) count(fn func(*Stats)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}

func (w *Worker) sweepLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(w.ctx); err != nil {
				w.logger.Warn("Sweep failed", "error", err)
			}
		}
	}
}

// Sweep enqueues a readings-updated event for every configured asset, or
// every asset known to the source when none are configured. It returns the
// number of events the queue accepted.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	assets := w.cfg.SweepAssets
	if len(assets) == 0 {
		if w.source == nil {
			return 0, nil
		}
		ids, err := w.source.ListAssetIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list assets: %w", err)
		}
		assets = ids
	}
	if len(assets) == 0 {
		return 0, nil
	}

	messages := make([]queue.BatchMessage, 0, len(assets))
	for _, id := range assets {
		data, err := queue.EncodeJSON(queue.ReadingsUpdatedEvent{AssetID: id})
		if err != nil {
			return 0, err
		}
		messages = append(messages, queue.BatchMessage{Subject: w.cfg.ReadingsSubject, Data: data})
	}

	published, err := w.queue.PublishBatch(ctx, messages)
	if err != nil {
		return published, fmt.Errorf("failed to enqueue sweep: %w", err)
	}
	w.logger.Info("Sweep enqueued", "assets", len(assets), "published", published)
	return published, nil
}
