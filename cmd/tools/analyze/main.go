package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/contextprovider"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/services"
	"github.com/soltixdb/tankwatch/internal/source"
	"github.com/soltixdb/tankwatch/internal/telemetry"
	"github.com/soltixdb/tankwatch/internal/utils"
)

func main() {
	// Command line flags
	input := flag.String("input", "", "CSV file of readings (timestamp, level_percent, ...)")
	assetID := flag.String("asset", "tank", "Asset ID")
	capacity := flag.Float64("capacity", 0, "Tank capacity in liters")
	timezone := flag.String("timezone", "", "IANA timezone or UTC offset for day bucketing (default: engine default)")
	region := flag.String("region", "", "Delivery region ID for the risk strategy")
	contextFile := flag.String("context", "", "JSON file of operations, weather events, regions and road risk")
	strategy := flag.String("strategy", "", "Recommendation strategy: none, operation, risk")
	end := flag.String("end", "", "Window end, RFC3339 or yyyy-mm-dd (default: latest reading)")
	window := flag.Int("window", 0, "Window length in days (default: engine default)")
	lead := flag.Int("lead", -1, "Delivery lead time in days (default: engine default)")
	configPath := flag.String("config", "", "Optional configuration file for engine thresholds")
	importDSN := flag.String("import-postgres", "", "Also load the asset and readings into this postgres DSN")
	seedEtcd := flag.String("seed-etcd", "", "Also write the -context file to these comma-separated etcd endpoints")
	quiet := flag.Bool("quiet", false, "Suppress log output")

	flag.Parse()

	// Validate required parameters
	if *input == "" {
		log.Fatal("Error: -input parameter is required")
	}
	if *capacity <= 0 {
		log.Fatal("Error: -capacity must be positive")
	}
	if *seedEtcd != "" && *contextFile == "" {
		log.Fatal("Error: -seed-etcd requires -context")
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v\n", err)
		}
		cfg = loaded
	}

	logger := logging.NewDevelopment()
	if *quiet {
		logger = logging.NewNop()
	}

	readings, err := readFile(*input)
	if err != nil {
		log.Fatalf("Error reading %s: %v\n", *input, err)
	}
	if len(readings) == 0 {
		log.Printf("Warning: No readings found in %s\n", *input)
		return
	}
	readings = telemetry.SortedCopy(readings)
	logger.Info("Loaded readings", "count", len(readings), "file", *input)

	asset := telemetry.Asset{
		ID:             *assetID,
		CapacityLiters: *capacity,
		Timezone:       *timezone,
		RegionID:       *region,
	}

	src := source.NewMemorySource()
	if err := src.PutAsset(asset); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
	if err := src.AddReadings(asset.ID, readings...); err != nil {
		log.Fatalf("Error: %v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultRequestTimeout)
	defer cancel()

	provider := contextprovider.NewMemoryProvider()
	if *contextFile != "" {
		snap, err := readSnapshot(*contextFile)
		if err != nil {
			log.Fatalf("Error reading %s: %v\n", *contextFile, err)
		}
		provider.AddSnapshot(snap)
		if *seedEtcd != "" {
			if err := seedEtcdContext(ctx, *seedEtcd, cfg, logger, snap); err != nil {
				log.Fatalf("Error seeding etcd: %v\n", err)
			}
			logger.Info("Seeded etcd context", "endpoints", *seedEtcd, "prefix", cfg.Context.Prefix)
		}
	}

	if *importDSN != "" {
		if err := importPostgres(ctx, *importDSN, asset, readings); err != nil {
			log.Fatalf("Error importing into postgres: %v\n", err)
		}
		logger.Info("Imported into postgres", "asset_id", asset.ID, "readings", len(readings))
	}

	req := services.AnalysisRequest{
		AssetID:    asset.ID,
		WindowDays: *window,
		Strategy:   strings.ToLower(*strategy),
	}
	if *lead >= 0 {
		req.LeadTimeDays = lead
	}
	if *end != "" {
		req.End, err = parseEnd(*end)
		if err != nil {
			log.Fatalf("Error: %v\n", err)
		}
	} else {
		latest, _ := telemetry.Latest(readings)
		req.End = latest.Timestamp
	}

	svc := services.NewAnalysisService(logger, src, provider, nil, nil, cfg.Engine, cfg.Worker)
	result, err := svc.Analyze(ctx, req)
	if err != nil {
		log.Fatalf("Error: %v\n", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Error writing result: %v\n", err)
	}
}

func readFile(path string) ([]telemetry.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return source.ReadCSV(f)
}

func readSnapshot(path string) (*contextprovider.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return contextprovider.DecodeSnapshot(f)
}

func seedEtcdContext(ctx context.Context, endpoints string, cfg *config.Config, logger *logging.Logger, snap *contextprovider.Snapshot) error {
	etcdCfg := cfg.Etcd
	etcdCfg.Endpoints = strings.Split(endpoints, ",")

	p, err := contextprovider.NewEtcdProvider(etcdCfg, cfg.Context, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()
	return p.Seed(ctx, snap)
}

func parseEnd(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -end %q: expected RFC3339 or yyyy-mm-dd", s)
	}
	return day.Add(24*time.Hour - time.Second), nil
}

func importPostgres(ctx context.Context, dsn string, asset telemetry.Asset, readings []telemetry.Reading) error {
	pg, err := source.NewPostgresSource(ctx, config.SourceConfig{
		Type:         "postgres",
		DSN:          dsn,
		MaxConns:     2,
		QueryTimeout: utils.DefaultRequestTimeout,
	})
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := pg.UpsertAsset(ctx, asset); err != nil {
		return err
	}
	_, err = pg.InsertReadings(ctx, asset.ID, readings)
	return err
}
