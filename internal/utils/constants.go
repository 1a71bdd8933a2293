package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultRequestTimeout bounds one HTTP analysis request end to end
	DefaultRequestTimeout = 30 * time.Second

	// ConnectTimeout bounds the initial ping of redis, postgres and etcd clients
	ConnectTimeout = 5 * time.Second

	// ShutdownTimeout bounds graceful shutdown of servers and consumers
	ShutdownTimeout = 10 * time.Second

	// PublishTimeout bounds publishing one recommendation event
	PublishTimeout = 5 * time.Second
)

// =============================================================================
// Queue Constants
// =============================================================================

// QueueType represents the message queue backend type
type QueueType string

const (
	QueueTypeNATS   QueueType = "nats"
	QueueTypeRedis  QueueType = "redis"
	QueueTypeKafka  QueueType = "kafka"
	QueueTypeMemory QueueType = "memory"
)

const (
	// SubjectReadingsUpdated is published by ingestion when new readings land
	SubjectReadingsUpdated = "tank.readings.updated"

	// SubjectRecommendations carries computed delivery recommendations
	SubjectRecommendations = "tank.recommendations"

	// MemoryQueueBuffer is the per-subject channel capacity of the memory queue
	MemoryQueueBuffer = 10000
)

// =============================================================================
// Retry and Backoff Constants
// =============================================================================

const (
	// DefaultRetryBackoff is the first pause before a failed message is retried
	DefaultRetryBackoff = 100 * time.Millisecond

	// MaxRetryBackoff caps the pause between retries of one message
	MaxRetryBackoff = 5 * time.Second

	// DefaultClaimIdle is how long a Redis stream entry stays pending before
	// a consumer claims it again
	DefaultClaimIdle = 30 * time.Second
)

// =============================================================================
// HTTP Query Limits
// =============================================================================

const (
	// MaxWindowDays caps the window_days query parameter
	MaxWindowDays = 730

	// MaxLeadTimeDays caps the lead_time_days query parameter
	MaxLeadTimeDays = 60
)
