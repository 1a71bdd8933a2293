// Package contextprovider supplies the planning context around a tank:
// scheduled operations, forecast weather, region attributes and road-risk
// assessments. Missing data is never an error; callers get empty results.
package contextprovider

import (
	"context"
	"time"

	"github.com/soltixdb/tankwatch/internal/telemetry"
)

// Provider reads planning context. Implementations are safe for concurrent
// use.
type Provider interface {
	// UpcomingOperations returns operations on the asset that overlap
	// [from, to], ordered by start date.
	UpcomingOperations(ctx context.Context, assetID string, from, to time.Time) ([]telemetry.UpcomingOperation, error)

	// WeatherEvents returns events in the region that overlap [from, to],
	// ordered by start date.
	WeatherEvents(ctx context.Context, regionID string, from, to time.Time) ([]telemetry.WeatherEvent, error)

	// Region returns the region's attributes, or nil when unknown.
	Region(ctx context.Context, regionID string) (*telemetry.Region, error)

	// RoadRisk returns the region's road-closure assessments.
	RoadRisk(ctx context.Context, regionID string) ([]telemetry.RoadRiskAssessment, error)

	Close() error
}

func operationOverlaps(op telemetry.UpcomingOperation, from, to time.Time) bool {
	days := op.ExpectedDurationDays
	if days < 1 {
		days = 1
	}
	end := op.StartDate.AddDate(0, 0, days)
	return !op.StartDate.After(to) && end.After(from)
}

func eventOverlaps(e telemetry.WeatherEvent, from, to time.Time) bool {
	end := e.EndDate
	if end.Before(e.StartDate) {
		end = e.StartDate
	}
	return !e.StartDate.After(to) && !end.Before(from)
}
