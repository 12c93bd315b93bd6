// Package queue buffers device readings between the ingestion front and the
// forwarding workers.
package queue

import (
	"context"
	"sync"

	"github.com/eldercare-platform/eldercare/internal/domain/model"
	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Reading is the payload type flowing through the queue.
type Reading = model.Reading

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a reading without blocking.
	// Returns ErrFull when at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, r Reading) error

	// Dequeue returns a channel that receives readings as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Reading

	// Len returns the current number of queued readings.
	Len(ctx context.Context) int

	// Close stops accepting readings. Buffered readings are still delivered.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	readings chan Reading
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.readings = make(chan Reading, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Enqueue adds a reading to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Reading) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.readings <- r:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.readings))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive readings as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Reading {
	out := make(chan Reading)
	go func() {
		defer close(out)
		for r := range q.readings {
			select {
			case out <- r:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.readings))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued readings.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.readings)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.readings)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
