package queue

import (
	"context"
	"time"
)

// MessageInterface abstracts a delivered message so workers can be tested
// against mock implementations.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the broker-facing contract for memory extraction jobs.
type JobQueue interface {
	// Enqueue publishes a job.
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue pulls a single message, or nil when the queue is empty.
	// The caller must ack or nack the returned message.
	//
	// Deprecated: use Consume.
	Dequeue(ctx context.Context) (*Message, error)

	// Consume streams messages as they arrive until ctx is cancelled.
	// prefetchCount bounds the unacked messages per consumer. The caller
	// must ack or nack each message; both channels close on shutdown.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close releases the broker connection.
	Close() error

	// HealthCheck reports whether the broker connection is usable.
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than a retention window.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
