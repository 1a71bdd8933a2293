package contextprovider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// MemoryProvider holds planning context in maps.
type MemoryProvider struct {
	mu         sync.RWMutex
	operations map[string][]telemetry.UpcomingOperation
	weather    map[string][]telemetry.WeatherEvent
	regions    map[string]telemetry.Region
	roadRisk   map[string][]telemetry.RoadRiskAssessment
}

// NewMemoryProvider creates an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		operations: make(map[string][]telemetry.UpcomingOperation),
		weather:    make(map[string][]telemetry.WeatherEvent),
		regions:    make(map[string]telemetry.Region),
		roadRisk:   make(map[string][]telemetry.RoadRiskAssessment),
	}
}

// AddOperation records an upcoming operation for op.AssetID.
func (p *MemoryProvider) AddOperation(op telemetry.UpcomingOperation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.operations[op.AssetID] = append(p.operations[op.AssetID], op)
}

// AddWeatherEvent records a forecast event for e.RegionID.
func (p *MemoryProvider) AddWeatherEvent(e telemetry.WeatherEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.weather[e.RegionID] = append(p.weather[e.RegionID], e)
}

// PutRegion adds or replaces a region.
func (p *MemoryProvider) PutRegion(r telemetry.Region) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regions[r.ID] = r
}

// AddRoadRisk records a road-closure assessment for a.RegionID.
func (p *MemoryProvider) AddRoadRisk(a telemetry.RoadRiskAssessment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roadRisk[a.RegionID] = append(p.roadRisk[a.RegionID], a)
}

// UpcomingOperations implements Provider.
func (p *MemoryProvider) UpcomingOperations(_ context.Context, assetID string, from, to time.Time) ([]telemetry.UpcomingOperation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := []telemetry.UpcomingOperation{}
	for _, op := range p.operations[assetID] {
		if operationOverlaps(op, from, to) {
			out = append(out, op)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// WeatherEvents implements Provider.
func (p *MemoryProvider) WeatherEvents(_ context.Context, regionID string, from, to time.Time) ([]telemetry.WeatherEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := []telemetry.WeatherEvent{}
	for _, e := range p.weather[regionID] {
		if eventOverlaps(e, from, to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// Region implements Provider.
func (p *MemoryProvider) Region(_ context.Context, regionID string) (*telemetry.Region, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.regions[regionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// RoadRisk implements Provider.
func (p *MemoryProvider) RoadRisk(_ context.Context, regionID string) ([]telemetry.RoadRiskAssessment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]telemetry.RoadRiskAssessment{}, p.roadRisk[regionID]...), nil
}

// Close is a no-op.
func (p *MemoryProvider) Close() error { return nil }
