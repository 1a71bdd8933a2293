package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReadingsUpdatedEvent announces that new readings for an asset have been
// stored up to WindowEnd. A zero WindowEnd means "now".
type ReadingsUpdatedEvent struct {
	AssetID   string    `json:"asset_id"`
	WindowEnd time.Time `json:"window_end,omitempty"`
}

// RecommendationEvent is the published form of a delivery recommendation.
type RecommendationEvent struct {
	ID            string    `json:"id"`
	AssetID       string    `json:"asset_id"`
	UrgencyLevel  string    `json:"urgency_level"`
	OrderByDate   string    `json:"order_by_date"`
	LitersNeeded  float64   `json:"liters_needed"`
	DaysOfBuffer  float64   `json:"days_of_buffer"`
	Reason        string    `json:"reason"`
	Strategy      string    `json:"strategy"`
	ConfigVersion string    `json:"config_version"`
	WindowEnd     time.Time `json:"window_end"`
	ComputedAt    time.Time `json:"computed_at"`
}

// NewEventID returns a fresh event identifier.
func NewEventID() string {
	return uuid.New().String()
}

// EncodeJSON marshals an event payload.
func EncodeJSON(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// PublishJSON marshals v and publishes it on subject.
func PublishJSON(ctx context.Context, p Publisher, subject string, v interface{}) error {
	data, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("%s: %w", subject, err)
	}
	return p.Publish(ctx, subject, data)
}

// JSONHandler adapts a typed callback to a MessageHandler. Payloads that do
// not decode are dropped (the handler returns nil) so a poison message is
// acknowledged instead of redelivered forever; onInvalid sees them first.
func JSONHandler[T any](fn func(T) error, onInvalid func(data []byte, err error)) MessageHandler {
	return func(data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			if onInvalid != nil {
				onInvalid(data, err)
			}
			return nil
		}
		return fn(v)
	}
}
