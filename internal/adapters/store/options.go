package store

import (
	"time"

	"github.com/tipio/tipio/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithRetention sets how long stale entries survive before compaction.
func WithRetention(d time.Duration) Option {
	return func(s *FileStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithCompactInterval sets how often StartCompaction runs.
func WithCompactInterval(d time.Duration) Option {
	return func(s *FileStore) {
		if d > 0 {
			s.compactInterval = d
		}
	}
}

// WithCompactExempt marks keys that Compact must never remove, for
// long-lived documents that share a file with TTL-bound cache entries.
func WithCompactExempt(keys ...string) Option {
	return func(s *FileStore) {
		for _, k := range keys {
			s.exempt[k] = struct{}{}
		}
	}
}

// WithClock overrides the time source. Used by tests to control TTL expiry.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}
