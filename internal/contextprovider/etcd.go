package contextprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/soltixdb/tankwatch/internal/config"
	"github.com/soltixdb/tankwatch/internal/logging"
	"github.com/soltixdb/tankwatch/internal/telemetry"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Key layout below the configured prefix (default /tankwatch):
//
//	operations/<asset_id>/<operation_id>   UpcomingOperation
//	weather/<region_id>/<event_id>         WeatherEvent
//	regions/<region_id>                    Region
//	roadrisk/<region_id>/<road_name>       RoadRiskAssessment
const (
	operationsDir = "operations"
	weatherDir    = "weather"
	regionsDir    = "regions"
	roadRiskDir   = "roadrisk"
)

// EtcdProvider reads planning context stored as JSON documents in etcd.
// Range reads are cached for ContextConfig.CacheTTL.
type EtcdProvider struct {
	client *clientv3.Client
	prefix string
	cache  *prefixCache
	logger *logging.Logger
}

// NewEtcdProvider connects to etcd.
func NewEtcdProvider(etcdCfg config.EtcdConfig, ctxCfg config.ContextConfig, logger *logging.Logger) (*EtcdProvider, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   etcdCfg.Endpoints,
		DialTimeout: etcdCfg.DialTimeout,
		Username:    etcdCfg.Username,
		Password:    etcdCfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return newEtcdProviderWithClient(client, ctxCfg, logger), nil
}

func newEtcdProviderWithClient(client *clientv3.Client, cfg config.ContextConfig, logger *logging.Logger) *EtcdProvider {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/tankwatch"
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &EtcdProvider{
		client: client,
		prefix: prefix,
		cache:  newPrefixCache(cfg.CacheTTL),
		logger: logger,
	}
}

func (p *EtcdProvider) key(parts ...string) string {
	return path.Join(append([]string{p.prefix}, parts...)...)
}

// list returns every value under dir, served from cache when fresh.
func (p *EtcdProvider) list(ctx context.Context, dir string) ([][]byte, error) {
	dir += "/"
	if values, ok := p.cache.get(dir); ok {
		return values, nil
	}

	resp, err := p.client.Get(ctx, dir, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from etcd: %w", dir, err)
	}
	values := make([][]byte, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		values = append(values, kv.Value)
	}
	p.cache.set(dir, values)
	return values, nil
}

// decodeAll unmarshals each value into T, skipping malformed documents.
func decodeAll[T any](p *EtcdProvider, dir string, values [][]byte) []T {
	out := make([]T, 0, len(values))
	for _, raw := range values {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			p.logger.Warn("Skipping malformed context document", "dir", dir, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// UpcomingOperations implements Provider.
func (p *EtcdProvider) UpcomingOperations(ctx context.Context, assetID string, from, to time.Time) ([]telemetry.UpcomingOperation, error) {
	dir := p.key(operationsDir, assetID)
	values, err := p.list(ctx, dir)
	if err != nil {
		return nil, err
	}

	out := []telemetry.UpcomingOperation{}
	for _, op := range decodeAll[telemetry.UpcomingOperation](p, dir, values) {
		if op.AssetID == "" {
			op.AssetID = assetID
		}
		if operationOverlaps(op, from, to) {
			out = append(out, op)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// WeatherEvents implements Provider.
func (p *EtcdProvider) WeatherEvents(ctx context.Context, regionID string, from, to time.Time) ([]telemetry.WeatherEvent, error) {
	dir := p.key(weatherDir, regionID)
	values, err := p.list(ctx, dir)
	if err != nil {
		return nil, err
	}

	out := []telemetry.WeatherEvent{}
	for _, e := range decodeAll[telemetry.WeatherEvent](p, dir, values) {
		if !e.Category.Valid() {
			p.logger.Warn("Skipping weather event with unknown category", "region_id", regionID, "category", string(e.Category))
			continue
		}
		if e.RegionID == "" {
			e.RegionID = regionID
		}
		if eventOverlaps(e, from, to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// Region implements Provider.
func (p *EtcdProvider) Region(ctx context.Context, regionID string) (*telemetry.Region, error) {
	key := p.key(regionsDir, regionID)
	resp, err := p.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get region %s from etcd: %w", regionID, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}

	var r telemetry.Region
	if err := json.Unmarshal(resp.Kvs[0].Value, &r); err != nil {
		p.logger.Warn("Ignoring malformed region document", "region_id", regionID, "error", err)
		return nil, nil
	}
	if r.ID == "" {
		r.ID = regionID
	}
	return &r, nil
}

// RoadRisk implements Provider.
func (p *EtcdProvider) RoadRisk(ctx context.Context, regionID string) ([]telemetry.RoadRiskAssessment, error) {
	dir := p.key(roadRiskDir, regionID)
	values, err := p.list(ctx, dir)
	if err != nil {
		return nil, err
	}
	return decodeAll[telemetry.RoadRiskAssessment](p, dir, values), nil
}

func (p *EtcdProvider) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if _, err := p.client.Put(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s in etcd: %w", key, err)
	}
	p.cache.invalidate(key)
	return nil
}

// PutOperation stores an upcoming operation.
func (p *EtcdProvider) PutOperation(ctx context.Context, op telemetry.UpcomingOperation) error {
	if op.AssetID == "" || op.ID == "" {
		return fmt.Errorf("operation requires asset_id and id")
	}
	return p.put(ctx, p.key(operationsDir, op.AssetID, op.ID), op)
}

// PutWeatherEvent stores a forecast weather event.
func (p *EtcdProvider) PutWeatherEvent(ctx context.Context, e telemetry.WeatherEvent) error {
	if e.RegionID == "" || e.ID == "" {
		return fmt.Errorf("weather event requires region_id and id")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("unknown weather category %q", e.Category)
	}
	return p.put(ctx, p.key(weatherDir, e.RegionID, e.ID), e)
}

// PutRegion stores region attributes.
func (p *EtcdProvider) PutRegion(ctx context.Context, r telemetry.Region) error {
	if r.ID == "" {
		return fmt.Errorf("region requires id")
	}
	return p.put(ctx, p.key(regionsDir, r.ID), r)
}

// PutRoadRisk stores a road-closure assessment keyed by road name.
func (p *EtcdProvider) PutRoadRisk(ctx context.Context, a telemetry.RoadRiskAssessment) error {
	if a.RegionID == "" {
		return fmt.Errorf("road risk requires region_id")
	}
	road := a.RoadName
	if road == "" {
		road = "default"
	}
	return p.put(ctx, p.key(roadRiskDir, a.RegionID, road), a)
}

// Close stops the cache sweeper and closes the etcd client.
func (p *EtcdProvider) Close() error {
	p.cache.stop()
	return p.client.Close()
}
