package telemetry

import "errors"

// Reference errors. These signal a caller contract violation and are returned
// as failures; data-quality problems never produce an error.
var (
	ErrMissingAssetID  = errors.New("asset id is required")
	ErrMissingTimezone = errors.New("timezone is required for day bucketing")
	ErrInvalidCapacity = errors.New("tank capacity must be positive")
	ErrNoReadings      = errors.New("no readings in window")
)
