// Package worker delivers queued user notices asynchronously.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/pkg/logger"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Notice abstracts what workers read off the queue.
// Using the model.Notice type for consistency.
type Notice = model.Notice

// Notifier pushes a notice to an outbound channel (email, webhook, bot).
type Notifier interface {
	Deliver(ctx context.Context, n Notice) error
}

// Queue defines how workers receive notices.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Notice
}

// Worker processes notices, persisting and delivering each one.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	// It will process any remaining notices before stopping.
	Shutdown(ctx context.Context) error
}

// seenSet tracks already-delivered notice identities so a re-queued
// achievement unlock is not announced twice. Identity is the
// (user, kind, subject) triple.
type seenSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{keys: make(map[string]struct{})}
}

// markNew records the notice identity and reports whether it was unseen.
func (s *seenSet) markNew(n Notice) bool {
	key := n.UserID + "|" + string(n.Kind) + "|" + n.Subject
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

// InMemoryWorker implements Worker for processing notices.
type InMemoryWorker struct {
	queue    Queue
	notices  store.Store
	notifier Notifier
	seen     *seenSet
	name     string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, notices store.Store, notifier Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		notices:  notices,
		notifier: notifier,
		seen:     newSeenSet(),
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	noticeChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-noticeChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			if err := w.processNotice(ctx, n); err != nil {
				w.logger.Error(ctx, "error processing notice", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker, waiting at most
// workerShutdownTimeout for the loop to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	ctx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processNotice persists a single notice and pushes it outbound. Duplicate
// identities are dropped silently.
func (w *InMemoryWorker) processNotice(ctx context.Context, n Notice) error {
	if !w.seen.markNew(n) {
		return nil
	}

	key := n.UserID + "/" + n.ID
	if err := w.notices.Set(ctx, key, n); err != nil {
		return fmt.Errorf("persist notice %s: %w", n.ID, err)
	}

	if w.notifier == nil {
		return nil
	}
	if err := w.notifier.Deliver(ctx, n); err != nil {
		w.logger.Warn(ctx, "outbound delivery failed",
			logger.String("noticeID", n.ID),
			logger.String("userID", n.UserID),
			logger.Error(err),
		)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker

	// Shutdown control
	shutdown chan struct{}
	queue    Queue

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool. Workers share one dedupe set so the
// same achievement is announced once regardless of which worker drains it.
func NewPool(workerCount int, queue Queue, notices store.Store, notifier Notifier) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
		if cpus := runtime.NumCPU(); cpus > workerCount {
			workerCount = cpus
		}
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	seen := newSeenSet()
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			notices,
			notifier,
			WithName("worker-"+strconv.Itoa(i)),
		)
		pool.workers[i].seen = seen
	}

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Shutdown gracefully shuts down the entire worker pool.
func (p *Pool) Shutdown(ctx context.Context) error {
	// First close the queue to stop new notices
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
