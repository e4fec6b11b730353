// Package pending holds captured gated regions awaiting a deferred commit.
package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/metrics"
	"github.com/dshills/rigsync/internal/proxy/codec"
)

// ErrClosed indicates use of a closed store.
var ErrClosed = errors.New("pending store closed")

const (
	// maxEntriesInWindow sizes the initial shard allocation.
	maxEntriesInWindow = 1024

	cleanWindow = time.Minute
)

// Config configures the backing cache.
type Config struct {
	// Shards is the number of cache shards, a power of two.
	Shards int

	// LifeWindow is how long an entry survives without being taken.
	LifeWindow time.Duration

	// MaxEntrySize is the expected size of an encoded entry in bytes.
	MaxEntrySize int

	// HardMaxCacheSize caps the cache in MB. Zero means unbounded.
	HardMaxCacheSize int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Shards:       16,
		LifeWindow:   720 * time.Hour,
		MaxEntrySize: 4096,
	}
}

// Store maps datablock UUIDs to captured bone sequences.
// Stash overwrites, Take removes. Entries older than the life window, or
// the oldest entries once the hard size cap is reached, are evicted by the
// cache; every eviction is logged and counted.
type Store struct {
	mu     sync.Mutex
	cache  *bigcache.BigCache
	logger *zap.Logger
	closed bool
}

// New creates a store.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Shards <= 0 {
		cfg.Shards = def.Shards
	}
	if cfg.LifeWindow <= 0 {
		cfg.LifeWindow = def.LifeWindow
	}
	if cfg.MaxEntrySize <= 0 {
		cfg.MaxEntrySize = def.MaxEntrySize
	}

	bc := bigcache.DefaultConfig(cfg.LifeWindow)
	bc.Shards = cfg.Shards
	bc.MaxEntrySize = cfg.MaxEntrySize
	bc.HardMaxCacheSize = cfg.HardMaxCacheSize
	bc.MaxEntriesInWindow = maxEntriesInWindow
	bc.CleanWindow = cleanWindow
	bc.Verbose = false

	s := &Store{logger: logger.With(zap.String("component", "pending"))}
	bc.OnRemoveWithReason = s.onRemove

	cache, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("creating pending store: %w", err)
	}
	s.cache = cache
	return s, nil
}

// onRemove runs under a cache shard lock and must not call into the cache.
func (s *Store) onRemove(key string, _ []byte, reason bigcache.RemoveReason) {
	var label string
	switch reason {
	case bigcache.Deleted:
		return
	case bigcache.Expired:
		label = metrics.EvictExpired
	case bigcache.NoSpace:
		label = metrics.EvictNoSpace
	default:
		label = "unknown"
	}
	metrics.PendingEvictions.WithLabelValues(label).Inc()
	s.logger.Warn("pending gated region evicted before commit",
		zap.String("uuid", key),
		zap.String("reason", label))
}

// Stash stores bones for key, replacing any pending entry.
func (s *Store) Stash(key string, bones []host.Bone) error {
	data, err := codec.EncodeBones(bones)
	if err != nil {
		return fmt.Errorf("stash %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	_, err = s.cache.Get(key)
	replaced := err == nil
	if err := s.cache.Set(key, data); err != nil {
		return fmt.Errorf("stash %s: %w", key, err)
	}
	s.updateGauge()

	s.logger.Debug("gated region stashed",
		zap.String("uuid", key),
		zap.Int("bones", len(bones)),
		zap.Bool("replaced", replaced))
	return nil
}

// Take removes and returns the entry for key. The boolean reports
// whether an entry was pending.
func (s *Store) Take(key string) ([]host.Bone, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	data, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take %s: %w", key, err)
	}
	if err := s.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, fmt.Errorf("take %s: %w", key, err)
	}
	s.updateGauge()

	bones, err := codec.DecodeBones(data)
	if err != nil {
		return nil, true, fmt.Errorf("take %s: %w", key, err)
	}
	return bones, true, nil
}

// Peek returns the entry for key without removing it.
func (s *Store) Peek(key string) ([]host.Bone, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	data, err := s.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("peek %s: %w", key, err)
	}
	bones, err := codec.DecodeBones(data)
	if err != nil {
		return nil, true, fmt.Errorf("peek %s: %w", key, err)
	}
	return bones, true, nil
}

// Keys returns the keys of all pending entries.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var keys []string
	it := s.cache.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, entry.Key())
	}
	return keys
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}
	return s.cache.Len()
}

// Reset drops every pending entry.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.cache.Reset(); err != nil {
		return err
	}
	s.updateGauge()
	return nil
}

// Close releases the cache. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	metrics.PendingEntries.Set(0)
	return s.cache.Close()
}

// updateGauge must be called with s.mu held.
func (s *Store) updateGauge() {
	metrics.PendingEntries.Set(float64(s.cache.Len()))
}
