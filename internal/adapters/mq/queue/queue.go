// Package queue defines the contract for enqueuing and consuming user
// notices (achievement unlocks, degraded-mode warnings).
//
// Implementations may use channels or more advanced structures. The
// default is an in-memory bounded queue.
package queue

import (
	"context"
	"sync"

	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Notice represents the payload type flowing through the queue.
// Using the model.Notice type for type safety.
type Notice = model.Notice

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notice to the queue.
	// Returns false if the queue is full and the notice was dropped.
	Enqueue(ctx context.Context, n Notice) bool

	// Dequeue returns a channel that will receive notices as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notice

	// Len returns the current number of queued notices.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new notices can be enqueued and the dequeue
	// channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	notices  chan Notice
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.notices = make(chan Notice, q.capacity)
	metrics.UpdateNoticeQueueSize(0)

	return q
}

// Enqueue adds a notice to the queue. A full queue drops the notice
// rather than blocking the caller.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notice) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordNoticeDropped()
		return false
	}

	select {
	case q.notices <- n:
		metrics.RecordNoticeQueued()
		metrics.UpdateNoticeQueueSize(len(q.notices))
		return true
	case <-ctx.Done():
		metrics.RecordNoticeDropped()
		return false
	default:
		metrics.RecordNoticeDropped()
		return false
	}
}

// Dequeue returns a channel that will receive notices as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notice {
	out := make(chan Notice)
	go func() {
		defer close(out)
		for n := range q.notices {
			select {
			case out <- n:
				metrics.UpdateNoticeQueueSize(len(q.notices))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notices.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.notices)
	metrics.UpdateNoticeQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.notices)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
