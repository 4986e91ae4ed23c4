package kpcache

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/kpcache/fastcache"
)

// maxBuildAttempts bounds GetOrBuild: one initial attempt plus one retry
// after a resource-exhaustion recovery.
const maxBuildAttempts = 2

// ProgramCache is the program table: full key -> holder, plus the derived
// common-key index. Both are mutated only under the program-table mutex so
// they can never diverge.
type ProgramCache struct {
	cache  map[programKey]*ProgramBuildResult
	keyMap map[commonKey][]ProgramCacheKey
}

func newProgramCache() ProgramCache {
	return ProgramCache{
		cache:  make(map[programKey]*ProgramBuildResult),
		keyMap: make(map[commonKey][]ProgramCacheKey),
	}
}

// Size returns the number of cached program entries.
func (p *ProgramCache) Size() int { return len(p.cache) }

// KernelCache is the kernel table: program handle -> kernel name -> holder.
type KernelCache map[ProgramHandle]map[string]*KernelBuildResult

// Cache is one execution context's build cache. Three independently locked
// regions exist: the program table, the kernel table, and the fast cache.
// Table locks are held only for find-or-insert; builds run fully unlocked and
// are coordinated by the per-entry state machines alone.
type Cache struct {
	adapter Adapter
	log     Logger
	hooks   Hooks
	tracer  *tracer

	progMu   sync.Mutex
	programs ProgramCache

	kernMu  sync.Mutex
	kernels KernelCache

	fast fastcache.Store[KernelFastKey, KernelFastValue]

	resetEpoch atomic.Uint64
	recovery   func() // invoked on a retryable build failure before the retry
}

// AcquirePrograms locks the program table and returns the scoped accessor.
func (c *Cache) AcquirePrograms() Locked[ProgramCache] {
	return lockedOf(&c.progMu, &c.programs)
}

// AcquireKernels locks the kernel table and returns the scoped accessor.
func (c *Cache) AcquireKernels() Locked[KernelCache] {
	return lockedOf(&c.kernMu, &c.kernels)
}

// GetOrInsertProgram finds or inserts the holder for the given key and
// reports whether an insertion took place. A fresh holder starts in
// BuildStateInitial; the common-key index is updated in the same critical
// section.
func (c *Cache) GetOrInsertProgram(key ProgramCacheKey) (*ProgramBuildResult, bool) {
	lp := c.AcquirePrograms()
	defer lp.Unlock()

	pc := lp.Get()
	ck := key.canonical()
	if br, ok := pc.cache[ck]; ok {
		c.tracer.program("Program fetched.", key)
		return br, false
	}

	br := newBuildResult[ProgramHandle](BuildStateInitial, c.releaseProgram)
	pc.cache[ck] = br
	common := key.Common().canonical()
	pc.keyMap[common] = append(pc.keyMap[common], key)
	c.tracer.program("Program inserted.", key)
	return br, true
}

// InsertBuiltProgram seeds a holder directly in BuildStateDone with a program
// built out-of-band (multi-device builds, virtual-function variants) and
// reports whether the insertion took place. On false the cache did not take
// ownership: releasing the supplied handle stays the caller's responsibility.
func (c *Cache) InsertBuiltProgram(key ProgramCacheKey, program ProgramHandle) bool {
	lp := c.AcquirePrograms()
	defer lp.Unlock()

	pc := lp.Get()
	ck := key.canonical()
	if _, ok := pc.cache[ck]; ok {
		c.tracer.program("Program fetched.", key)
		return false
	}

	br := newBuildResult[ProgramHandle](BuildStateDone, c.releaseProgram)
	br.val = program
	pc.cache[ck] = br
	common := key.Common().canonical()
	pc.keyMap[common] = append(pc.keyMap[common], key)
	c.tracer.program("Program inserted.", key)
	return true
}

// ProgramKeysForCommon returns every full key registered under the given
// common key, i.e. all cached variants of one logical program.
func (c *Cache) ProgramKeysForCommon(common CommonProgramKey) []ProgramCacheKey {
	lp := c.AcquirePrograms()
	defer lp.Unlock()
	return slices.Clone(lp.Get().keyMap[common.canonical()])
}

// Size returns the number of cached program entries.
func (c *Cache) Size() int {
	lp := c.AcquirePrograms()
	defer lp.Unlock()
	return lp.Get().Size()
}

// GetOrInsertKernel finds or inserts the holder for a kernel of an already
// built program and reports whether an insertion took place.
func (c *Cache) GetOrInsertKernel(program ProgramHandle, name string) (*KernelBuildResult, bool) {
	lk := c.AcquireKernels()
	defer lk.Unlock()

	kc := *lk.Get()
	byName := kc[program]
	if byName == nil {
		byName = make(map[string]*KernelBuildResult)
		kc[program] = byName
	}
	if br, ok := byName[name]; ok {
		c.tracer.kernel("Kernel fetched.", name, false)
		return br, false
	}

	br := newBuildResult[KernelValue](BuildStateInitial, c.releaseKernel)
	byName[name] = br
	c.tracer.kernel("Kernel inserted.", name, false)
	return br, true
}

// TryToGetKernelFast looks the kernel up in the fast cache. On miss it
// returns the zero (all-null) value and false. Entries reference holders in
// the authoritative tables; a value obtained concurrently with Reset may be
// stale — a documented hazard of the fast path, not a correctness bug of the
// tables.
func (c *Cache) TryToGetKernelFast(key KernelFastKey) (KernelFastValue, bool) {
	v, ok := c.fast.Get(key)
	if ok {
		c.tracer.kernel("Kernel fetched.", key.Name, true)
	}
	return v, ok
}

// SaveKernel publishes a known-good kernel on the fast path. Last writer wins
// on a key collision; by the time a kernel is saved here the authoritative
// tables have already resolved any build race, so colliding writers carry
// identical values.
func (c *Cache) SaveKernel(key KernelFastKey, val KernelFastValue) {
	c.tracer.kernel("Kernel inserted.", key.Name, true)
	c.fast.Put(key, val)
}

// GetOrBuild drives one entry's build state machine. lookup finds or inserts
// the slot (it runs once per attempt, so a post-reset retry sees the fresh
// table); build performs the actual compile/link/extract and is invoked with
// no table lock held.
//
// Exactly one concurrent caller per entry claims the build; the rest block on
// the entry until a terminal state and then share the result or the recorded
// error. A retryable resource-exhaustion failure triggers the cache's
// recovery policy (by default a full Reset of all three tables) and one more
// attempt; any other failure, or an exhausted attempt budget, surfaces the
// diagnostic to the caller.
func GetOrBuild[T any](c *Cache, lookup func() (*BuildResult[T], bool), build func() (T, error)) (*BuildResult[T], error) {
	for attempt := 0; ; attempt++ {
		br, _ := lookup()
		if !br.tryClaim() {
			// Another goroutine owns or already finished this build.
			switch state := br.WaitUntilTransition(BuildStateInProgress); state {
			case BuildStateDone:
				return br, nil
			case BuildStateFailed:
				return nil, br.storedErr()
			default:
				// Initial again: the previous builder hit the retry path.
				if attempt+1 == maxBuildAttempts {
					return nil, br.storedErr()
				}
				continue
			}
		}

		val, err := runBuild(br, build)
		if err == nil {
			br.val = val
			br.updateAndNotify(BuildStateDone)
			c.hooks.BuildSucceeded()
			return br, nil
		}

		br.buildErr = BuildError{Msg: err.Error(), Code: resultCode(err)}
		if IsRetryable(err) && attempt+1 < maxBuildAttempts {
			c.log.Warn("retryable build failure, resetting cache", Fields{
				"code":    br.buildErr.Code,
				"attempt": attempt + 1,
			})
			c.recovery()
			c.hooks.BuildRetried(br.buildErr.Code, c.resetEpoch.Load())
			br.updateAndNotify(BuildStateInitial)
			continue
		}

		br.updateAndNotify(BuildStateFailed)
		c.hooks.BuildFailed(br.buildErr.Code)
		return nil, err
	}
}

// runBuild invokes the build callable and guarantees waiters are notified on
// every exit path: a panicking builder resets the entry to Initial before the
// panic continues, so no waiter is stranded in InProgress.
func runBuild[T any](br *BuildResult[T], build func() (T, error)) (val T, err error) {
	defer func() {
		if p := recover(); p != nil {
			br.updateAndNotify(BuildStateInitial)
			panic(p)
		}
	}()
	return build()
}

// Reset discards all three tables under their locks and releases the handles
// of Done holders. Intended for maintenance and tests; it is also the default
// recovery policy for retryable build failures, trading unrelated cache
// entries for reclaimed memory.
//
// A holder still InProgress when its table is dropped is skipped: its build
// completes on the orphaned entry and ownership of the resulting handle
// passes to the builder's caller.
func (c *Cache) Reset() {
	c.progMu.Lock()
	c.kernMu.Lock()
	oldProgs := c.programs
	oldKerns := c.kernels
	c.programs = newProgramCache()
	c.kernels = make(KernelCache)
	c.fast.Reset()
	c.kernMu.Unlock()
	c.progMu.Unlock()

	epoch := c.resetEpoch.Add(1)
	c.hooks.CacheReset(epoch)

	// Release outside the table locks; adapter calls may be slow.
	for _, br := range oldProgs.cache {
		br.destroy()
	}
	for _, byName := range oldKerns {
		for _, br := range byName {
			br.destroy()
		}
	}
}

// ResetEpoch returns the number of resets performed so far.
func (c *Cache) ResetEpoch() uint64 { return c.resetEpoch.Load() }

// Close tears the cache down: releases all owned handles and closes the fast
// cache backend.
func (c *Cache) Close() error {
	c.Reset()
	c.fast.Close()
	return nil
}

func (c *Cache) releaseProgram(h ProgramHandle) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("panic releasing program handle", Fields{"panic": p})
		}
	}()
	if h == 0 {
		return
	}
	if code := c.adapter.ReleaseProgram(h); code != ResultSuccess {
		c.log.Error("program release failed", Fields{"code": code})
		c.hooks.ReleaseFailed("program", code)
	}
}

func (c *Cache) releaseKernel(v KernelValue) {
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("panic releasing kernel handle", Fields{"panic": p})
		}
	}()
	if v.Kernel == 0 {
		return
	}
	if code := c.adapter.ReleaseKernel(v.Kernel); code != ResultSuccess {
		c.log.Error("kernel release failed", Fields{"code": code})
		c.hooks.ReleaseFailed("kernel", code)
	}
}
