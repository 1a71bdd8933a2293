package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Schema creates the tables PostgresSource reads. tank_readings can be
// turned into a TimescaleDB hypertable on ts without changing any query.
const Schema = `
CREATE TABLE IF NOT EXISTS tank_assets (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	capacity_liters DOUBLE PRECISION NOT NULL CHECK (capacity_liters > 0),
	timezone        TEXT NOT NULL DEFAULT '',
	region_id       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tank_exclusions (
	asset_id TEXT NOT NULL REFERENCES tank_assets(id) ON DELETE CASCADE,
	start_at TIMESTAMPTZ NOT NULL,
	end_at   TIMESTAMPTZ NOT NULL,
	label    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tank_readings (
	asset_id        TEXT NOT NULL REFERENCES tank_assets(id) ON DELETE CASCADE,
	ts              TIMESTAMPTZ NOT NULL,
	level_percent   DOUBLE PRECISION NOT NULL,
	level_liters    DOUBLE PRECISION,
	raw_percent     DOUBLE PRECISION,
	battery_voltage DOUBLE PRECISION,
	is_online       BOOLEAN
);

CREATE INDEX IF NOT EXISTS tank_readings_asset_ts_idx ON tank_readings (asset_id, ts);
`

var readingColumns = []string{
	"asset_id",
	"ts",
	"level_percent",
	"level_liters",
	"raw_percent",
	"battery_voltage",
	"is_online",
}

// PostgresSource reads assets and readings from PostgreSQL or TimescaleDB.
type PostgresSource struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresSource opens a pool for cfg.DSN and pings it.
func NewPostgresSource(ctx context.Context, cfg config.SourceConfig) (*PostgresSource, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &PostgresSource{pool: pool, timeout: cfg.QueryTimeout}, nil
}

// Close releases the pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// EnsureSchema applies Schema.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *PostgresSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetAsset implements Source.
func (s *PostgresSource) GetAsset(ctx context.Context, assetID string) (*telemetry.Asset, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	asset := telemetry.Asset{ID: assetID}
	err := s.pool.QueryRow(ctx,
		`SELECT name, capacity_liters, timezone, region_id FROM tank_assets WHERE id = $1`,
		assetID,
	).Scan(&asset.Name, &asset.CapacityLiters, &asset.Timezone, &asset.RegionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT start_at, end_at, label FROM tank_exclusions WHERE asset_id = $1 ORDER BY start_at`,
		assetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions for %s: %w", assetID, err)
	}
	asset.Exclusions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (telemetry.ExclusionPeriod, error) {
		var p telemetry.ExclusionPeriod
		err := row.Scan(&p.Start, &p.End, &p.Label)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan exclusions for %s: %w", assetID, err)
	}

	return &asset, nil
}

// FetchReadings implements Source.
func (s *PostgresSource) FetchReadings(ctx context.Context, assetID string, from, to time.Time) ([]telemetry.Reading, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tank_assets WHERE id = $1)`, assetID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check asset %s: %w", assetID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ts, level_percent, level_liters, raw_percent, battery_voltage, is_online
		FROM tank_readings
		WHERE asset_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts`,
		assetID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings for %s: %w", assetID, err)
	}

	readings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (telemetry.Reading, error) {
		var r telemetry.Reading
		err := row.Scan(&r.Timestamp, &r.LevelPercent, &r.LevelLiters, &r.RawPercent, &r.BatteryVoltage, &r.IsOnline)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan readings for %s: %w", assetID, err)
	}
	return readings, nil
}

// ListAssetIDs implements Source.
func (s *PostgresSource) ListAssetIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id FROM tank_assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset ids: %w", err)
	}
	return ids, nil
}

// UpsertAsset writes the asset row and replaces its exclusions.
func (s *PostgresSource) UpsertAsset(ctx context.Context, asset telemetry.Asset) error {
	if asset.ID == "" {
		return telemetry.ErrMissingAssetID
	}
	if asset.CapacityLiters <= 0 {
		return telemetry.ErrInvalidCapacity
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tank_assets (id, name, capacity_liters, timezone, region_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				capacity_liters = EXCLUDED.capacity_liters,
				timezone = EXCLUDED.timezone,
				region_id = EXCLUDED.region_id`,
			asset.ID, asset.Name, asset.CapacityLiters, asset.Timezone, asset.RegionID,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert asset %s: %w", asset.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tank_exclusions WHERE asset_id = $1`, asset.ID); err != nil {
			return fmt.Errorf("failed to clear exclusions for %s: %w", asset.ID, err)
		}
		for _, p := range asset.Exclusions {
			_, err := tx.Exec(ctx,
				`INSERT INTO tank_exclusions (asset_id, start_at, end_at, label) VALUES ($1, $2, $3, $4)`,
				asset.ID, p.Start, p.End, p.Label,
			)
			if err != nil {
				return fmt.Errorf("failed to insert exclusion for %s: %w", asset.ID, err)
			}
		}
		return nil
	})
}

// InsertReadings bulk-loads readings with COPY.
func (s *PostgresSource) InsertReadings(ctx context.Context, assetID string, readings []telemetry.Reading) (int64, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	rows := make([][]interface{}, len(readings))
	for i, r := range readings {
		rows[i] = []interface{}{
			assetID,
			r.Timestamp,
			r.LevelPercent,
			r.LevelLiters,
			r.RawPercent,
			r.BatteryVoltage,
			r.IsOnline,
		}
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"tank_readings"}, readingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("CopyFrom failed for batch of %d: %w", len(readings), err)
	}
	return n, nil
}
