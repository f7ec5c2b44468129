// Package engine provides a reference on-demand paging engine for lazy objects.
//
// The boundary package treats the engine as a black box; this package is the
// box. It reserves one anonymous mapping per object, materializes content in
// chunks through a population closure, evicts chunks when resident memory
// crosses the high watermark, and persists modified chunks to a per-object
// writeback file before dropping them.
//
// # Architecture
//
// The engine package provides three main types:
//
//	Core    - Owns the address-space registry, residency accounting and listeners
//	Object  - One lazy object: a header region followed by a page-aligned body
//	Waiter  - Completion of asynchronous reset and free work
//
// # Object Layout
//
//	mapping start                      page boundary
//	│  padding  │      header          │ body: ElementCount * Stride bytes │
//	            ^ HeaderPtr            ^ BodyPtr
//
// The header ends exactly where the page-aligned body begins, so
// BodyPtr == HeaderPtr + HeaderSize.
//
// # Chunks
//
// The body is split into chunks of whole elements whose byte size is a
// multiple of the page size. A chunk is the unit of population, eviction
// and writeback:
//
//	Touch(addr)   - materialize the chunk containing addr
//	eviction      - FIFO over resident chunks, from high down to low watermark
//	writeback     - a changed, writable chunk is saved before it is dropped
//
// A chunk that was written back is reloaded from the writeback file rather
// than repopulated.
//
// # Listeners
//
// Core.SetEventListener installs one engine-wide listener receiving every
// ufo.Event. ObjectConfig.Writeback receives per-object writeback events.
// Listeners and populate functions run with no engine lock held and may call
// back into the engine, including SetEventListener. Reset and Free notify from
// the goroutine behind their Waiter. A populate function must not touch its
// own chunk; doing so fails instead of waiting.
//
// # Thread Safety
//
// Core and Object are safe for concurrent use. Object.Lock is a caller lock
// that the engine itself never takes; it serializes callers that need an
// object to stay put across several calls.
package engine
