package telemetry

import "time"

// UpcomingOperation is a scheduled activity on the asset's site that will
// draw fuel, such as a harvest booked in the farm calendar.
type UpcomingOperation struct {
	ID                       string    `json:"id"`
	AssetID                  string    `json:"asset_id"`
	Type                     string    `json:"type"`
	Label                    string    `json:"label,omitempty"`
	StartDate                time.Time `json:"start_date"`
	ExpectedDurationDays     int       `json:"expected_duration_days"`
	ExpectedDailyUsageLiters float64   `json:"expected_daily_usage_liters"`
}

// EventCategory is the kind of weather event.
type EventCategory string

const (
	EventFlood     EventCategory = "flood"
	EventHeavyRain EventCategory = "heavy_rain"
	EventSnow      EventCategory = "snow"
	EventCyclone   EventCategory = "cyclone"
	EventBushfire  EventCategory = "bushfire"
	EventStorm     EventCategory = "storm"
	EventHeatwave  EventCategory = "heatwave"
)

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool {
	switch c {
	case EventFlood, EventHeavyRain, EventSnow, EventCyclone, EventBushfire, EventStorm, EventHeatwave:
		return true
	default:
		return false
	}
}

// ClosesRoads reports whether the category typically cuts unsealed or
// low-lying access roads.
func (c EventCategory) ClosesRoads() bool {
	switch c {
	case EventFlood, EventHeavyRain, EventSnow:
		return true
	default:
		return false
	}
}

// DisruptsDeliveries reports whether the category disrupts deliveries
// regardless of road type.
func (c EventCategory) DisruptsDeliveries() bool {
	switch c {
	case EventCyclone, EventBushfire, EventStorm:
		return true
	default:
		return false
	}
}

// WeatherEvent is a forecast weather window for a region.
type WeatherEvent struct {
	ID          string        `json:"id"`
	RegionID    string        `json:"region_id"`
	Category    EventCategory `json:"category"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Probability float64       `json:"probability"`
	Description string        `json:"description,omitempty"`
}

// Region is the delivery region an asset belongs to.
type Region struct {
	ID                string `json:"id"`
	Name              string `json:"name,omitempty"`
	ClosureProneRoads bool   `json:"closure_prone_roads"`
}

// RoadRiskAssessment estimates how long a region's access roads stay closed
// after an event.
type RoadRiskAssessment struct {
	RegionID            string    `json:"region_id"`
	RoadName            string    `json:"road_name,omitempty"`
	ClosureProbability  float64   `json:"closure_probability"`
	ExpectedClosureDays int       `json:"expected_closure_days"`
	ValidFrom           time.Time `json:"valid_from"`
	ValidTo             time.Time `json:"valid_to"`
}
