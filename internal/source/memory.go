package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// MemorySource is a Source backed by maps. Used by tests, the CLI and the
// API when source.type is memory.
type MemorySource struct {
	mu       sync.RWMutex
	assets   map[string]telemetry.Asset
	readings map[string][]telemetry.Reading
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		assets:   make(map[string]telemetry.Asset),
		readings: make(map[string][]telemetry.Reading),
	}
}

// PutAsset adds or replaces an asset.
func (s *MemorySource) PutAsset(asset telemetry.Asset) error {
	if asset.ID == "" {
		return telemetry.ErrMissingAssetID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[asset.ID] = asset
	return nil
}

// AddReadings appends readings for a known asset, keeping them sorted.
func (s *MemorySource) AddReadings(assetID string, readings ...telemetry.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[assetID]; !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	merged := append(s.readings[assetID], readings...)
	s.readings[assetID] = telemetry.SortedCopy(merged)
	return nil
}

// GetAsset implements Source.
func (s *MemorySource) GetAsset(ctx context.Context, assetID string) (*telemetry.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	asset.Exclusions = append([]telemetry.ExclusionPeriod(nil), asset.Exclusions...)
	return &asset, nil
}

// FetchReadings implements Source.
func (s *MemorySource) FetchReadings(ctx context.Context, assetID string, from, to time.Time) ([]telemetry.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.assets[assetID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	all := s.readings[assetID]
	lo := sort.Search(len(all), func(i int) bool { return !all[i].Timestamp.Before(from) })
	hi := sort.Search(len(all), func(i int) bool { return all[i].Timestamp.After(to) })
	if lo >= hi {
		return []telemetry.Reading{}, nil
	}
	out := make([]telemetry.Reading, hi-lo)
	copy(out, all[lo:hi])
	return out, nil
}

// ListAssetIDs implements Source.
func (s *MemorySource) ListAssetIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.assets))
	for id := range s.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (s *MemorySource) Close() {}
