package kpcache

import "sync"

// Locked bundles a table with its guarding mutex, acquired on construction.
// The caller must Unlock when done with the table; the usual shape is
//
//	lp := c.AcquirePrograms()
//	defer lp.Unlock()
//	... lp.Get() ...
//
// so the lock is held exactly as long as the table is used, on every exit
// path.
type Locked[T any] struct {
	mu *sync.Mutex
	v  *T
}

func lockedOf[T any](mu *sync.Mutex, v *T) Locked[T] {
	mu.Lock()
	return Locked[T]{mu: mu, v: v}
}

// Get returns the guarded table. Only valid before Unlock.
func (l Locked[T]) Get() *T { return l.v }

// Unlock releases the table lock.
func (l Locked[T]) Unlock() { l.mu.Unlock() }
