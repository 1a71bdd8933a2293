// Package cache stores computed analysis results so repeated requests for
// the same asset, window and engine configuration skip recomputation.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
)

// Key identifies one cached result. Results depend only on the reading
// window and the engine configuration, so (AssetID, WindowEnd,
// ConfigVersion) plus the kind of result and any request overrides is
// enough to make a hit safe.
type Key struct {
	AssetID       string
	Kind          string // "analysis", "recommendation", ...
	WindowEnd     time.Time
	ConfigVersion string
	Variant       string // request overrides, empty when none
}

// String renders the key in a form usable by any backend.
func (k Key) String() string {
	parts := []string{k.AssetID, k.Kind, k.WindowEnd.UTC().Format(time.RFC3339), k.ConfigVersion}
	if k.Variant != "" {
		parts = append(parts, k.Variant)
	}
	return strings.Join(parts, "|")
}

// Cache stores opaque result payloads.
type Cache interface {
	Get(ctx context.Context, key Key) ([]byte, bool, error)
	Set(ctx context.Context, key Key, value []byte) error
	Close() error
}

// New builds the cache selected by cfg.Type.
func New(cfg config.CacheConfig, logger *logging.Logger) (Cache, error) {
	switch cfg.Type {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		return NewRedisCache(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// GetJSON decodes a cached value into out. A payload that no longer decodes
// counts as a miss.
func GetJSON(ctx context.Context, c Cache, key Key, out interface{}) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it.
func SetJSON(ctx context.Context, c Cache, key Key, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return c.Set(ctx, key, data)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, Key) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, Key, []byte) error         { return nil }
func (Noop) Close() error                                   { return nil }
