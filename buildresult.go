package kpcache

import (
	"sync"
	"sync/atomic"
)

// BuildState is the lifecycle state of one cached build.
// Initial, Done and Failed are stable; InProgress is owned by exactly one
// builder goroutine, which is the only writer allowed to leave it.
type BuildState int32

const (
	BuildStateInitial BuildState = iota
	BuildStateInProgress
	BuildStateDone
	BuildStateFailed
)

func (s BuildState) String() string {
	switch s {
	case BuildStateInitial:
		return "initial"
	case BuildStateInProgress:
		return "in-progress"
	case BuildStateDone:
		return "done"
	case BuildStateFailed:
		return "failed"
	}
	return "unknown"
}

// BuildResult holds one build payload together with its lifecycle state and
// the recorded build error. The payload is usable if and only if the state is
// BuildStateDone. Holders own their native handle and release it through the
// adapter exactly once, when the owning cache discards them.
//
// The wait/notify primitive is strictly per-entry. A primitive shared across
// entries would let a waiter for entry A miss its wakeup while a build of
// entry B notifies, leaving A's waiter asleep until a spurious wakeup.
type BuildResult[T any] struct {
	val      T
	state    atomic.Int32
	buildErr BuildError // written only by the builder goroutine

	mu   sync.Mutex
	cond *sync.Cond

	release     func(T)
	releaseOnce sync.Once
}

// ProgramBuildResult holds a compiled program handle.
type ProgramBuildResult = BuildResult[ProgramHandle]

// KernelBuildResult holds an extracted kernel handle and its argument mask.
type KernelBuildResult = BuildResult[KernelValue]

func newBuildResult[T any](initial BuildState, release func(T)) *BuildResult[T] {
	r := &BuildResult[T]{release: release}
	r.state.Store(int32(initial))
	r.cond = sync.NewCond(&r.mu)
	return r
}

// State returns the current lifecycle state.
func (r *BuildResult[T]) State() BuildState { return BuildState(r.state.Load()) }

// Value returns the payload. Valid only when State is BuildStateDone; the
// payload write happens-before any waiter's observation of Done.
func (r *BuildResult[T]) Value() T { return r.val }

// Err returns the recorded build error, or nil if none was recorded.
func (r *BuildResult[T]) Err() *BuildError {
	if !r.buildErr.Filled() {
		return nil
	}
	e := r.buildErr
	return &e
}

// Mutex exposes the entry's guarding mutex for fast-cache values, which hold
// non-owning references into table entries.
func (r *BuildResult[T]) Mutex() *sync.Mutex { return &r.mu }

// tryClaim atomically moves Initial -> InProgress. At most one concurrent
// caller succeeds; the winner is the builder.
func (r *BuildResult[T]) tryClaim() bool {
	return r.state.CompareAndSwap(int32(BuildStateInitial), int32(BuildStateInProgress))
}

// WaitUntilTransition blocks until the state differs from the given one and
// returns the state observed.
func (r *BuildResult[T]) WaitUntilTransition(from BuildState) BuildState {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		to := BuildState(r.state.Load())
		if to != from {
			return to
		}
		r.cond.Wait()
	}
}

// updateAndNotify publishes the new state under the entry mutex and wakes all
// waiters. Storing under the mutex orders the payload and error writes before
// any waiter's observation of the new state.
func (r *BuildResult[T]) updateAndNotify(s BuildState) {
	r.mu.Lock()
	r.state.Store(int32(s))
	r.mu.Unlock()
	r.cond.Broadcast()
}

// storedErr is what waiters surface for a non-Done terminal observation: the
// recorded diagnostic, or ErrBuild when none was recorded.
func (r *BuildResult[T]) storedErr() error {
	if r.buildErr.Filled() {
		e := r.buildErr
		return &e
	}
	return ErrBuild
}

// destroy releases the owned handle, exactly once across all callers. Only a
// Done holder owns a usable handle; anything else has nothing to release.
// A holder still InProgress when its table is discarded passes ownership of
// the eventual handle to the builder's caller (see Cache.Reset).
func (r *BuildResult[T]) destroy() {
	r.releaseOnce.Do(func() {
		if r.release != nil && r.State() == BuildStateDone {
			r.release(r.val)
		}
	})
}
