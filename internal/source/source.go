// Package source supplies asset metadata and reading windows to the
// analysis services.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// ErrAssetNotFound is returned when the asset ID is unknown to the source.
var ErrAssetNotFound = errors.New("asset not found")

// Source reads assets and their readings. Implementations are safe for
// concurrent use.
type Source interface {
	// GetAsset returns the asset's static metadata, including exclusions.
	GetAsset(ctx context.Context, assetID string) (*telemetry.Asset, error)

	// FetchReadings returns readings with from <= timestamp <= to, oldest
	// first. An unknown asset yields ErrAssetNotFound; a known asset with
	// no readings yields an empty slice.
	FetchReadings(ctx context.Context, assetID string, from, to time.Time) ([]telemetry.Reading, error)

	// ListAssetIDs returns every known asset ID in ascending order.
	ListAssetIDs(ctx context.Context) ([]string, error)

	Close()
}
