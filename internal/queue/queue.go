// Package queue moves tankwatch events between processes. Ingestion
// publishes "readings updated" notices, the worker consumes them, and
// services publish computed recommendations. Backends: in-memory, NATS
// JetStream, Redis Streams and Kafka.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishBatch publishes every message and reports how many were
	// accepted by the backend.
	PublishBatch(ctx context.Context, messages []BatchMessage) (int, error)

	Close() error
}

// BatchMessage represents a message for batch publishing
type BatchMessage struct {
	Subject string
	Data    []byte
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe delivers every message on subject to handler. A handler
	// error leaves the message unacknowledged and the broker backends
	// redeliver it: NATS by nak, Redis by claiming idle pending entries,
	// Kafka by retrying the uncommitted offset. The memory queue logs the
	// error and moves on.
	Subscribe(subject string, handler MessageHandler) error

	Unsubscribe(subject string) error

	Close() error
}

// MessageHandler handles incoming messages
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}
