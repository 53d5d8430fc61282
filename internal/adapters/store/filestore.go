package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tipio/tipio/pkg/logger"
	"github.com/tipio/tipio/pkg/metrics"
)

// envelope wraps a stored value with its write timestamp. Values are kept as
// raw JSON so fields added by newer versions survive a rewrite untouched.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

// FileStore implements Store backed by a single JSON file. The in-memory
// document is authoritative; persistence is best-effort and a failed flush
// never rolls back a mutation.
type FileStore struct {
	mu   sync.Mutex
	path string
	name string
	doc  map[string]envelope

	retention       time.Duration
	compactInterval time.Duration
	exempt          map[string]struct{}
	now             func() time.Time

	logger logger.Logger
}

// NewFileStore opens (or creates) the document at path. A corrupt or missing
// file starts an empty document; durability problems are logged, not fatal.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:            path,
		name:            storeName(path),
		doc:             make(map[string]envelope),
		retention:       48 * time.Hour,
		compactInterval: time.Hour,
		exempt:          make(map[string]struct{}),
		now:             time.Now,
		logger:          logger.Get().Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func storeName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return base
}

func (s *FileStore) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn(context.Background(), "reading store file failed; starting empty",
				logger.String("store", s.name),
				logger.Error(err),
			)
		}
		return
	}
	var doc map[string]envelope
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn(context.Background(), "store file is corrupt; starting empty",
			logger.String("store", s.name),
			logger.Error(err),
		)
		return
	}
	s.doc = doc
}

// flush persists the document. Must be called with s.mu held.
func (s *FileStore) flush(ctx context.Context) {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.reportWriteError(ctx, err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.reportWriteError(ctx, err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		s.reportWriteError(ctx, err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.reportWriteError(ctx, err)
	}
}

func (s *FileStore) reportWriteError(ctx context.Context, err error) {
	metrics.RecordStoreWriteError(s.name)
	s.logger.Error(ctx, "persisting store failed; in-memory state kept",
		logger.String("store", s.name),
		logger.Error(err),
	)
}

// tx implements Tx over the in-memory document. Only constructed with the
// store mutex held.
type tx struct {
	s       *FileStore
	mutated bool
}

func (t *tx) Get(key string, out any) (bool, error) {
	env, ok := t.s.doc[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return false, fmt.Errorf("%w: key %q: %v", ErrDecode, key, err)
	}
	return true, nil
}

func (t *tx) GetFresh(key string, ttl time.Duration, out any) (bool, error) {
	env, ok := t.s.doc[key]
	if !ok {
		return false, nil
	}
	if t.s.now().Sub(env.Timestamp) >= ttl {
		// Lazy expiry: stale entries are treated as absent and overwritten
		// by the next Set.
		return false, nil
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return false, fmt.Errorf("%w: key %q: %v", ErrDecode, key, err)
	}
	return true, nil
}

func (t *tx) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrEncode, key, err)
	}
	t.s.doc[key] = envelope{Value: raw, Timestamp: t.s.now()}
	t.mutated = true
	return nil
}

func (t *tx) Delete(key string) {
	if _, ok := t.s.doc[key]; ok {
		delete(t.s.doc, key)
		t.mutated = true
	}
}

func (t *tx) Keys() []string {
	keys := make([]string, 0, len(t.s.doc))
	for k := range t.s.doc {
		keys = append(keys, k)
	}
	return keys
}

// Update runs fn atomically with respect to every other reader and writer of
// this store. The document is flushed once, after fn returns without error.
func (s *FileStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tx{s: s}
	if err := fn(t); err != nil {
		return err
	}
	if t.mutated {
		s.flush(ctx)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{s: s}).Get(key, out)
}

func (s *FileStore) GetFresh(ctx context.Context, key string, ttl time.Duration, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{s: s}).GetFresh(key, ttl, out)
}

func (s *FileStore) Set(ctx context.Context, key string, v any) error {
	return s.Update(ctx, func(t Tx) error {
		return t.Set(key, v)
	})
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.Update(ctx, func(t Tx) error {
		t.Delete(key)
		return nil
	})
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&tx{s: s}).Keys(), nil
}

func (s *FileStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc)
}

// Compact drops entries older than the retention window, skipping exempt
// keys. Cache stores call this periodically so lazily expired entries do not
// accumulate forever; long-lived documents sharing the file register their
// keys via WithCompactExempt.
func (s *FileStore) Compact(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.retention)
	removed := 0
	for k, env := range s.doc {
		if _, ok := s.exempt[k]; ok {
			continue
		}
		if env.Timestamp.Before(cutoff) {
			delete(s.doc, k)
			removed++
		}
	}
	if removed > 0 {
		s.flush(ctx)
	}
	return removed
}

// StartCompaction runs Compact on a ticker until ctx is canceled.
func (s *FileStore) StartCompaction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.compactInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Compact(ctx); n > 0 {
					s.logger.Debug(ctx, "compacted store",
						logger.String("store", s.name),
						logger.Int("removed", n),
					)
				}
			}
		}
	}()
}
