package kpcache

import (
	"errors"
	"fmt"
)

// ErrBuild is returned to waiters when a build finished in a non-terminal way
// without recording a diagnostic (e.g. the builder panicked).
var ErrBuild = errors.New("kpcache: build failed")

// ErrAllocation marks a generic host allocation failure. Build callables may
// wrap it to request the retry path without a native code.
var ErrAllocation = errors.New("kpcache: allocation failed")

// BuildError carries the native diagnostic of a failed build: the compiler or
// linker message and the native result code. It is recorded once by the
// builder and observed identically by every waiter.
type BuildError struct {
	Msg  string
	Code Result
}

func (e *BuildError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("kpcache: build failed (code %d)", e.Code)
	}
	return e.Msg
}

// Filled reports whether a diagnostic was recorded.
func (e *BuildError) Filled() bool { return e.Msg != "" }

// IsRetryable reports whether err is a resource-exhaustion condition that
// permits a cache-wide reset and one more build attempt: a generic allocation
// failure, or a native out-of-resources / out-of-host-memory /
// out-of-device-memory code.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrAllocation) {
		return true
	}
	switch resultCode(err) {
	case ResultOutOfResources, ResultOutOfHostMemory, ResultOutOfDeviceMemory:
		return true
	}
	return false
}

// resultCode extracts the native code from err, or ResultSuccess when err
// carries none.
func resultCode(err error) Result {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code
	}
	return ResultSuccess
}
