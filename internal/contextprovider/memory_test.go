package contextprovider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

var today = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestMemoryProvider_Operations(t *testing.T) {
	p := NewMemoryProvider()
	p.AddOperation(telemetry.UpcomingOperation{ID: "late", AssetID: "tank-1", StartDate: today.AddDate(0, 0, 20), ExpectedDurationDays: 5})
	p.AddOperation(telemetry.UpcomingOperation{ID: "soon", AssetID: "tank-1", StartDate: today.AddDate(0, 0, 3), ExpectedDurationDays: 5})
	p.AddOperation(telemetry.UpcomingOperation{ID: "done", AssetID: "tank-1", StartDate: today.AddDate(0, 0, -10), ExpectedDurationDays: 3})
	p.AddOperation(telemetry.UpcomingOperation{ID: "running", AssetID: "tank-1", StartDate: today.AddDate(0, 0, -2), ExpectedDurationDays: 5})
	p.AddOperation(telemetry.UpcomingOperation{ID: "other", AssetID: "tank-2", StartDate: today})

	ops, err := p.UpcomingOperations(context.Background(), "tank-1", today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "running", ops[0].ID)
	assert.Equal(t, "soon", ops[1].ID)
	assert.Equal(t, "late", ops[2].ID)

	none, err := p.UpcomingOperations(context.Background(), "tank-9", today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryProvider_WeatherAndRegion(t *testing.T) {
	p := NewMemoryProvider()
	p.AddWeatherEvent(telemetry.WeatherEvent{ID: "w1", RegionID: "kimberley", Category: telemetry.EventCyclone, StartDate: today.AddDate(0, 0, 2), EndDate: today.AddDate(0, 0, 4)})
	p.AddWeatherEvent(telemetry.WeatherEvent{ID: "w0", RegionID: "kimberley", Category: telemetry.EventFlood, StartDate: today.AddDate(0, 0, -5), EndDate: today.AddDate(0, 0, -1)})
	p.PutRegion(telemetry.Region{ID: "kimberley", ClosureProneRoads: true})
	p.AddRoadRisk(telemetry.RoadRiskAssessment{RegionID: "kimberley", ClosureProbability: 0.7, ExpectedClosureDays: 6})

	ctx := context.Background()
	events, err := p.WeatherEvents(ctx, "kimberley", today, today.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "w1", events[0].ID)

	region, err := p.Region(ctx, "kimberley")
	require.NoError(t, err)
	require.NotNil(t, region)
	assert.True(t, region.ClosureProneRoads)

	missing, err := p.Region(ctx, "nowhere")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	risk, err := p.RoadRisk(ctx, "kimberley")
	require.NoError(t, err)
	assert.Len(t, risk, 1)
	assert.NoError(t, p.Close())
}

func TestOverlapHelpers(t *testing.T) {
	op := telemetry.UpcomingOperation{StartDate: today, ExpectedDurationDays: 0}
	assert.True(t, operationOverlaps(op, today, today), "zero duration counts as one day")
	assert.False(t, operationOverlaps(op, today.AddDate(0, 0, 1), today.AddDate(0, 0, 2)))

	e := telemetry.WeatherEvent{StartDate: today, EndDate: today.AddDate(0, 0, -1)}
	assert.True(t, eventOverlaps(e, today, today), "end before start is treated as single instant")
}

func TestPrefixCache(t *testing.T) {
	c := newPrefixCache(time.Minute)
	defer c.stop()

	now := today
	c.now = func() time.Time { return now }

	c.set("/tankwatch/operations/tank-1/", [][]byte{[]byte("{}")})
	values, ok := c.get("/tankwatch/operations/tank-1/")
	require.True(t, ok)
	assert.Len(t, values, 1)

	c.invalidate("/tankwatch/operations/tank-1/op-7")
	_, ok = c.get("/tankwatch/operations/tank-1/")
	assert.False(t, ok, "writing below a cached prefix invalidates it")

	c.set("/a/", nil)
	now = now.Add(2 * time.Minute)
	_, ok = c.get("/a/")
	assert.False(t, ok, "expired entry")
	assert.Equal(t, 1, c.size())

	disabled := newPrefixCache(0)
	disabled.set("/x/", nil)
	_, ok = disabled.get("/x/")
	assert.False(t, ok)
	disabled.stop()
	disabled.stop()
}
