// Package store implements the TTL-aware JSON document store shared by all
// persistence concerns (caches, history, profiles, votes, notices).
//
// Each logical store is one JSON document on disk: a mapping from a stable
// key to an envelope carrying the value and its write timestamp. Mutations
// follow a load-whole-document, mutate, save-whole-document pattern, so every
// store serializes its writers behind a single mutex and exposes Update as
// the atomic read-modify-write entry point.
package store

import (
	"context"
	"time"
)

// Tx provides access to the document inside an Update critical section.
// It is only valid for the duration of the callback.
type Tx interface {
	// Get decodes the value at key into out. Returns false when absent.
	// TTL is not consulted; stale entries are still returned.
	Get(key string, out any) (bool, error)

	// GetFresh decodes the value at key into out only when the entry was
	// written less than ttl ago. Stale entries are treated as absent.
	GetFresh(key string, ttl time.Duration, out any) (bool, error)

	// Set writes the value at key with the current timestamp.
	Set(key string, v any) error

	// Delete removes the entry at key.
	Delete(key string)

	// Keys lists all keys currently in the document, stale ones included.
	Keys() []string
}

// Store provides read/write access to one persisted JSON document.
type Store interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	GetFresh(ctx context.Context, key string, ttl time.Duration, out any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)

	// Update runs fn inside the store's critical section. All reads and
	// writes made through tx are observed atomically by other callers:
	// either the whole mutation is visible or none of it is.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Count returns the number of entries, stale ones included.
	Count(ctx context.Context) int
}
