// Package ristretto backs the kpcache fast path with an admission-controlled
// dgraph-io/ristretto cache. Unlike the default flat store, a Put may be
// dropped or applied asynchronously; a fast-path miss is always safe because
// the caller falls back to the authoritative tables. Use it when the fast
// cache itself must be memory-bounded.
package ristretto

import (
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/kpcache/fastcache"
)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
}

// Store adapts a ristretto cache to fastcache.Store. Ristretto hashes only
// plain key kinds, so the caller supplies keyFn flattening K to a string
// (kpcache.FastKeyString for kernel fast keys).
type Store[K comparable, V any] struct {
	c     *rc.Cache
	keyFn func(K) string
}

var _ fastcache.Store[string, int] = (*Store[string, int])(nil)

func New[K comparable, V any](cfg Config, keyFn func(K) string) (*Store[K, V], error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	if keyFn == nil {
		return nil, errors.New("ristretto: keyFn is required")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store[K, V]{c: c, keyFn: keyFn}, nil
}

func (s *Store[K, V]) Get(k K) (V, bool) {
	var zero V
	raw, ok := s.c.Get(s.keyFn(k))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		// self-heal: drop unexpected entry shape
		s.c.Del(s.keyFn(k))
		return zero, false
	}
	return v, true
}

func (s *Store[K, V]) Put(k K, v V) {
	s.c.Set(s.keyFn(k), v, 1)
}

func (s *Store[K, V]) Reset() {
	s.c.Clear()
}

func (s *Store[K, V]) Close() {
	s.c.Wait()
	s.c.Close()
}

// Metrics exposes ristretto metrics when enabled in Config.
func (s *Store[K, V]) Metrics() *rc.Metrics { return s.c.Metrics }
