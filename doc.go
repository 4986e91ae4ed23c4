// Package kpcache implements the in-memory kernel/program build cache of a
// heterogeneous-compute runtime. It deduplicates compilation: for any distinct
// (spec constants, image, device set) key the build callable runs at most once,
// even when many goroutines request the same program or kernel concurrently.
//
// Components:
//   - BuildResult[T]: per-key state machine (Initial -> InProgress -> Done|Failed)
//     with a private wait/notify primitive and exactly-once handle release.
//   - Program table: full key -> holder, plus a common-key index grouping all
//     spec-constant variants of one logical program.
//   - Kernel table: program handle -> kernel name -> holder.
//   - Fast cache: flat, weakly-consistent secondary store for hot kernel
//     lookups (pluggable backend, see package fastcache).
//
// Coordination pattern:
//
//	br, err := kpcache.GetOrBuild(c,
//	    func() (*kpcache.ProgramBuildResult, bool) { return c.GetOrInsertProgram(key) },
//	    func() (kpcache.ProgramHandle, error) { return compile(key) })
//
// Exactly one caller runs compile; everyone else blocks on the entry until it
// reaches a terminal state. Retryable resource-exhaustion failures trigger one
// cache-wide reset and a second attempt before the error is surfaced.
package kpcache
