package kpcache

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/unkn0wn-root/kpcache/internal/gid"
)

// TraceEnv is the process-configuration toggle for per-operation trace lines.
// Any value other than empty or "0" enables tracing.
const TraceEnv = "KPCACHE_CACHE_TRACE"

func traceEnabledFromEnv() bool {
	v := os.Getenv(TraceEnv)
	return v != "" && v != "0"
}

// tracer emits one line per table insert/fetch to an error stream when
// enabled. Lines carry the goroutine id, the cache region, a structured key
// summary and the action, in the shape
//
//	[In-Memory Cache][Goroutine Id:7][Program Cache][Key:{imageId = 3,device = 0x1a,}]: Program inserted.
type tracer struct {
	enabled bool
	mu      sync.Mutex
	w       io.Writer
}

func newTracer(enabled bool, w io.Writer) *tracer {
	if w == nil {
		w = os.Stderr
	}
	return &tracer{enabled: enabled, w: w}
}

func (t *tracer) program(action string, key ProgramCacheKey) {
	if !t.enabled {
		return
	}
	var devs strings.Builder
	for _, d := range key.Devices {
		fmt.Fprintf(&devs, "0x%x,", uintptr(d))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[In-Memory Cache][Goroutine Id:%d][Program Cache][Key:{imageId = %d,device = %s}]: %s\n",
		gid.ID(), uintptr(key.ImageID), devs.String(), action)
}

func (t *tracer) kernel(action, name string, fast bool) {
	if !t.enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[In-Memory Cache][Goroutine Id:%d][Kernel Cache][IsFastCache: %t][Key:{Name = %s}]: %s\n",
		gid.ID(), fast, name, action)
}
