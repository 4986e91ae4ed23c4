package kpcache

import (
	"fmt"
	"io"

	"github.com/unkn0wn-root/kpcache/fastcache"
)

// Options tune one cache instance. Only Adapter is required; everything else
// has a sensible default.
type Options struct {
	// Required: the native-driver surface used to release compiled handles.
	Adapter Adapter

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// Fast is the hot-path kernel lookup backend. nil => an exact flat-map
	// store (fastcache.NewFlat). Weaker backends (fastcache/ristretto) are
	// allowed: a fast-path miss just falls through to the tables.
	Fast fastcache.Store[KernelFastKey, KernelFastValue]

	// Trace overrides the KPCACHE_CACHE_TRACE environment toggle; TraceWriter
	// overrides the stderr destination. Both exist mainly for tests.
	Trace       *bool
	TraceWriter io.Writer

	// RetryRecovery runs after a retryable (resource-exhaustion) build
	// failure, before the second attempt. nil => a full Reset of all three
	// tables. The full reset is deliberately coarse: exhaustion usually means
	// the process is pressured by cached compiled objects, so everything is
	// dropped to free memory before the retry.
	RetryRecovery func()
}

// New constructs a build cache. One instance is expected per execution
// context; instances are independent and safe for concurrent use.
func New(opts Options) (*Cache, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("kpcache: adapter is required")
	}

	c := &Cache{
		adapter:  opts.Adapter,
		programs: newProgramCache(),
		kernels:  make(KernelCache),
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	if opts.Fast != nil {
		c.fast = opts.Fast
	} else {
		c.fast = fastcache.NewFlat[KernelFastKey, KernelFastValue]()
	}

	enabled := traceEnabledFromEnv()
	if opts.Trace != nil {
		enabled = *opts.Trace
	}
	c.tracer = newTracer(enabled, opts.TraceWriter)

	if opts.RetryRecovery != nil {
		c.recovery = opts.RetryRecovery
	} else {
		c.recovery = c.Reset
	}
	return c, nil
}
