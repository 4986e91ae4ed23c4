package kpcache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them from
// build completion paths. Wrap with hooks/async to decouple slow consumers.
type Hooks interface {
	// A build reached Done.
	BuildSucceeded()

	// A build finalized to Failed with the given native code
	// (ResultSuccess when the error carried none).
	BuildFailed(code Result)

	// A retryable resource-exhaustion failure triggered the recovery policy;
	// epoch is the reset epoch after recovery ran.
	BuildRetried(code Result, epoch uint64)

	// The adapter reported a non-success code while releasing a handle.
	// region is "program" or "kernel".
	ReleaseFailed(region string, code Result)

	// All three tables were cleared.
	CacheReset(epoch uint64)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) BuildSucceeded()              {}
func (NopHooks) BuildFailed(Result)           {}
func (NopHooks) BuildRetried(Result, uint64)  {}
func (NopHooks) ReleaseFailed(string, Result) {}
func (NopHooks) CacheReset(uint64)            {}
