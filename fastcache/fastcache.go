// Package fastcache provides the hot-path lookup store used by kpcache for
// repeat kernel fetches. The slow, authoritative tables resolve build races;
// entries land here strictly afterwards, so a store needs no in-progress
// state and no wait/notify coordination — a plain keyed store suffices.
package fastcache

import "sync"

// Store is a low-overhead keyed store. Implementations must be safe for
// concurrent use. Put is last-writer-wins; backends with admission control
// may drop a Put entirely, in which case the next Get simply misses and the
// caller falls back to the slow path.
type Store[K comparable, V any] interface {
	// Get returns the stored value, or the zero value and false on miss.
	Get(k K) (V, bool)

	// Put stores v under k.
	Put(k K, v V)

	// Reset discards all entries.
	Reset()

	// Close releases backend resources.
	Close()
}

// Flat is the default Store: a single-mutex flat map. Exact semantics — a Put
// is always visible to the next Get — at the cost of one lock per operation.
type Flat[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

var _ Store[string, int] = (*Flat[string, int])(nil)

func NewFlat[K comparable, V any]() *Flat[K, V] {
	return &Flat[K, V]{m: make(map[K]V)}
}

func (f *Flat[K, V]) Get(k K) (V, bool) {
	f.mu.Lock()
	v, ok := f.m[k]
	f.mu.Unlock()
	return v, ok
}

func (f *Flat[K, V]) Put(k K, v V) {
	f.mu.Lock()
	f.m[k] = v
	f.mu.Unlock()
}

func (f *Flat[K, V]) Reset() {
	f.mu.Lock()
	f.m = make(map[K]V)
	f.mu.Unlock()
}

func (f *Flat[K, V]) Close() {}
