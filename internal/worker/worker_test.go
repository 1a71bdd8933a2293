package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/delivery"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/queue"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/source"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	requests []services.AnalysisRequest
	err      error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return &services.AnalysisResult{
		AssetID:        req.AssetID,
		Recommendation: delivery.Recommendation{AssetID: req.AssetID, UrgencyLevel: delivery.UrgencyGood},
	}, nil
}

func (a *fakeAnalyzer) calls() []services.AnalysisRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]services.AnalysisRequest(nil), a.requests...)
}

func newTestQueue(t *testing.T) *queue.MemoryQueue {
	t.Helper()
	q, err := queue.NewQueue(config.QueueConfig{Type: "memory"}, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	mq, ok := q.(*queue.MemoryQueue)
	require.True(t, ok)
	return mq
}

func testConfig() config.WorkerConfig {
	cfg := config.DefaultConfig().Worker
	cfg.ProcessTimeout = time.Second
	cfg.SweepInterval = 0
	return cfg
}

func publish(t *testing.T, q queue.Publisher, v interface{}) {
	t.Helper()
	require.NoError(t, queue.PublishJSON(context.Background(), q, "tank.readings.updated", v))
}

func TestWorker_ProcessesEvents(t *testing.T) {
	q := newTestQueue(t)
	analyzer := &fakeAnalyzer{}
	w := New(logging.NewNop(), q, analyzer, nil, testConfig())
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	publish(t, q, queue.ReadingsUpdatedEvent{AssetID: "tank-1", WindowEnd: end})

	require.Eventually(t, func() bool { return w.Stats().Processed == 1 }, 2*time.Second, 10*time.Millisecond)

	calls := analyzer.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tank-1", calls[0].AssetID)
	assert.True(t, calls[0].End.Equal(end))
	assert.True(t, calls[0].Refresh)
}

func TestWorker_DropsInvalidEvents(t *testing.T) {
	q := newTestQueue(t)
	analyzer := &fakeAnalyzer{}
	w := New(logging.NewNop(), q, analyzer, nil, testConfig())
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.NoError(t, q.Publish(context.Background(), "tank.readings.updated", []byte("{not json")))
	publish(t, q, queue.ReadingsUpdatedEvent{})

	require.Eventually(t, func() bool { return w.Stats().Invalid == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, analyzer.calls())
}

func TestWorker_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		skipped int64
		failed  int64
	}{
		{"asset not found is skipped", services.NewServiceError(services.CodeAssetNotFound, "gone"), 1, 0},
		{"no readings is skipped", services.NewServiceError(services.CodeNoReadings, "empty"), 1, 0},
		{"source unavailable fails", services.NewServiceError(services.CodeSourceUnavailable, "down"), 0, 1},
		{"unknown error fails", errors.New("boom"), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(logging.NewNop(), newTestQueue(t), &fakeAnalyzer{err: tt.err}, nil, testConfig())

			err := w.handle(queue.ReadingsUpdatedEvent{AssetID: "tank-1"})
			if tt.failed > 0 {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			stats := w.Stats()
			assert.Equal(t, tt.skipped, stats.Skipped)
			assert.Equal(t, tt.failed, stats.Failed)
		})
	}
}

func TestWorker_StartTwice(t *testing.T) {
	w := New(logging.NewNop(), newTestQueue(t), &fakeAnalyzer{}, nil, testConfig())
	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestWorker_SweepConfiguredAssets(t *testing.T) {
	q := newTestQueue(t)
	cfg := testConfig()
	cfg.SweepAssets = []string{"a", "b", "c"}
	w := New(logging.NewNop(), q, &fakeAnalyzer{}, nil, cfg)

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, q.Pending("tank.readings.updated"))
}

func TestWorker_SweepSourceAssets(t *testing.T) {
	q := newTestQueue(t)
	src := source.NewMemorySource()
	require.NoError(t, src.PutAsset(telemetry.Asset{ID: "tank-1", CapacityLiters: 1000}))
	require.NoError(t, src.PutAsset(telemetry.Asset{ID: "tank-2", CapacityLiters: 1000}))
	w := New(logging.NewNop(), q, &fakeAnalyzer{}, src, testConfig())

	n, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWorker_SweepLoop(t *testing.T) {
	q := newTestQueue(t)
	analyzer := &fakeAnalyzer{}
	cfg := testConfig()
	cfg.SweepInterval = 20 * time.Millisecond
	cfg.SweepAssets = []string{"tank-9"}
	w := New(logging.NewNop(), q, analyzer, nil, cfg)
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop() }()

	require.Eventually(t, func() bool {
		for _, c := range analyzer.calls() {
			if c.AssetID == "tank-9" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
