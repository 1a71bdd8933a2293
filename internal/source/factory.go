package source

import (
	"context"
	"fmt"

	"github.com/soltixdb/tankwatch/internal/config"
)

// New creates the Source selected by cfg.Type. An empty type means memory.
func New(ctx context.Context, cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemorySource(), nil
	case "postgres":
		return NewPostgresSource(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported source type: %s (supported: memory, postgres)", cfg.Type)
	}
}
