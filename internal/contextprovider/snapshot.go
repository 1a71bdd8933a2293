package contextprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Snapshot is a JSON document of planning context, used to seed a
// provider from a file.
type Snapshot struct {
	Operations    []telemetry.UpcomingOperation  `json:"operations"`
	WeatherEvents []telemetry.WeatherEvent       `json:"weather_events"`
	Regions       []telemetry.Region             `json:"regions"`
	RoadRisk      []telemetry.RoadRiskAssessment `json:"road_risk"`
}

// DecodeSnapshot reads a Snapshot from r. Unknown fields and weather events
// with an unknown category are rejected.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode context snapshot: %w", err)
	}

	for _, e := range snap.WeatherEvents {
		if !e.Category.Valid() {
			return nil, fmt.Errorf("weather event %s: unknown category %q", e.ID, e.Category)
		}
	}
	return &snap, nil
}

// AddSnapshot adds every entry of snap to p.
func (p *MemoryProvider) AddSnapshot(snap *Snapshot) {
	for _, op := range snap.Operations {
		p.AddOperation(op)
	}
	for _, e := range snap.WeatherEvents {
		p.AddWeatherEvent(e)
	}
	for _, region := range snap.Regions {
		p.PutRegion(region)
	}
	for _, a := range snap.RoadRisk {
		p.AddRoadRisk(a)
	}
}

// Seed writes every entry of snap to etcd. It stops at the first failure;
// entries written before it stay in place.
func (p *EtcdProvider) Seed(ctx context.Context, snap *Snapshot) error {
	for _, op := range snap.Operations {
		if err := p.PutOperation(ctx, op); err != nil {
			return err
		}
	}
	for _, e := range snap.WeatherEvents {
		if err := p.PutWeatherEvent(ctx, e); err != nil {
			return err
		}
	}
	for _, region := range snap.Regions {
		if err := p.PutRegion(ctx, region); err != nil {
			return err
		}
	}
	for _, a := range snap.RoadRisk {
		if err := p.PutRoadRisk(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
