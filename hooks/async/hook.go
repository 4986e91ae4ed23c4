// Package asynchook decouples slow hook consumers from the cache's build
// completion paths: events are queued and delivered on worker goroutines,
// and dropped when the queue is full.
//
// usage:
//
//	raw := myMetricsHooks{}
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := kpcache.New(kpcache.Options{
//	    Adapter: adapter,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/kpcache"
)

type Hooks struct {
	inner kpcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ kpcache.Hooks = (*Hooks)(nil)

func New(inner kpcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) BuildSucceeded() { h.try(func() { h.inner.BuildSucceeded() }) }
func (h *Hooks) BuildFailed(code kpcache.Result) {
	h.try(func() { h.inner.BuildFailed(code) })
}
func (h *Hooks) BuildRetried(code kpcache.Result, epoch uint64) {
	h.try(func() { h.inner.BuildRetried(code, epoch) })
}
func (h *Hooks) ReleaseFailed(region string, code kpcache.Result) {
	h.try(func() { h.inner.ReleaseFailed(region, code) })
}
func (h *Hooks) CacheReset(epoch uint64) {
	h.try(func() { h.inner.CacheReset(epoch) })
}
