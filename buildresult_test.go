package kpcache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// At most one goroutine observes a successful Initial -> InProgress claim.
func TestTryClaimExclusive(t *testing.T) {
	br := newBuildResult[ProgramHandle](BuildStateInitial, nil)

	const n = 64
	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if br.tryClaim() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("claims won = %d, want 1", got)
	}
	if br.State() != BuildStateInProgress {
		t.Fatalf("state = %v, want in-progress", br.State())
	}
}

func TestWaitUntilTransition(t *testing.T) {
	t.Run("returns_immediately_when_already_past", func(t *testing.T) {
		br := newBuildResult[ProgramHandle](BuildStateDone, nil)
		if got := br.WaitUntilTransition(BuildStateInProgress); got != BuildStateDone {
			t.Fatalf("observed %v, want done", got)
		}
	})

	t.Run("wakes_all_waiters_on_notify", func(t *testing.T) {
		br := newBuildResult[ProgramHandle](BuildStateInitial, nil)
		if !br.tryClaim() {
			t.Fatalf("claim failed on fresh entry")
		}

		const n = 8
		observed := make(chan BuildState, n)
		var started sync.WaitGroup
		for i := 0; i < n; i++ {
			started.Add(1)
			go func() {
				started.Done()
				observed <- br.WaitUntilTransition(BuildStateInProgress)
			}()
		}
		started.Wait()

		br.val = 0x42
		br.updateAndNotify(BuildStateDone)

		for i := 0; i < n; i++ {
			if got := <-observed; got != BuildStateDone {
				t.Fatalf("waiter %d observed %v, want done", i, got)
			}
		}
		// Payload is fully visible once Done is observed.
		if br.Value() != 0x42 {
			t.Fatalf("value = %#x, want 0x42", br.Value())
		}
	})
}

func TestStoredErr(t *testing.T) {
	t.Run("generic_when_not_filled", func(t *testing.T) {
		br := newBuildResult[ProgramHandle](BuildStateInitial, nil)
		if err := br.storedErr(); !errors.Is(err, ErrBuild) {
			t.Fatalf("storedErr = %v, want ErrBuild", err)
		}
	})

	t.Run("diagnostic_when_filled", func(t *testing.T) {
		br := newBuildResult[ProgramHandle](BuildStateInitial, nil)
		br.buildErr = BuildError{Msg: "link failed", Code: ResultProgramLinkFailure}
		var be *BuildError
		if err := br.storedErr(); !errors.As(err, &be) || be.Msg != "link failed" {
			t.Fatalf("storedErr = %v", err)
		}
		if br.Err() == nil || br.Err().Code != ResultProgramLinkFailure {
			t.Fatalf("Err() = %+v", br.Err())
		}
	})
}

func TestDestroy(t *testing.T) {
	t.Run("releases_done_exactly_once", func(t *testing.T) {
		var released atomic.Int64
		br := newBuildResult[ProgramHandle](BuildStateInitial, func(ProgramHandle) { released.Add(1) })
		br.val = 1
		br.state.Store(int32(BuildStateDone))

		br.destroy()
		br.destroy()
		if got := released.Load(); got != 1 {
			t.Fatalf("released %d times, want 1", got)
		}
	})

	t.Run("skips_non_done", func(t *testing.T) {
		var released atomic.Int64
		for _, s := range []BuildState{BuildStateInitial, BuildStateInProgress, BuildStateFailed} {
			br := newBuildResult[ProgramHandle](s, func(ProgramHandle) { released.Add(1) })
			br.destroy()
		}
		if released.Load() != 0 {
			t.Fatalf("non-done holders released a handle")
		}
	})
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		ErrAllocation,
		&BuildError{Msg: "m", Code: ResultOutOfResources},
		&BuildError{Msg: "m", Code: ResultOutOfHostMemory},
		&BuildError{Msg: "m", Code: ResultOutOfDeviceMemory},
	}
	for _, err := range retryable {
		if !IsRetryable(err) {
			t.Fatalf("IsRetryable(%v) = false", err)
		}
	}
	fatal := []error{
		errors.New("plain"),
		&BuildError{Msg: "m", Code: ResultProgramBuildFailure},
		&BuildError{Msg: "m", Code: ResultSuccess},
	}
	for _, err := range fatal {
		if IsRetryable(err) {
			t.Fatalf("IsRetryable(%v) = true", err)
		}
	}
}
