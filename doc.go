// Package ufo provides a Go boundary for an on-demand-paged lazy object engine.
//
// A lazy object is a memory region whose content is not materialized until
// it is first touched. Content is produced by a caller-supplied population
// callback and, when memory pressure forces eviction, modified content is
// persisted through an optional writeback listener.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ufo/                 Root package with shared event types
//	├── boundary/        Foreign-callable handles, callback adapters, fault containment
//	├── engine/          Reference paging engine (mapped regions, eviction, writeback)
//	├── resource/        Generic opaque handles and token tables
//	├── errors/          Structured error types for debugging
//	└── cmd/libufo/      C shared library exporting the boundary
//
// # Quick Start
//
// Create an engine, register a population function and allocate an object:
//
//	core := boundary.NewCore("/tmp/ufo", 16<<20, 64<<20)
//	if core.IsError() {
//	    log.Fatal("engine did not start")
//	}
//	defer core.Shutdown()
//
//	fill := boundary.Funcs().RegisterPopulate(func(ctx, start, end, dst uintptr) int32 {
//	    // write elements [start, end) to dst
//	    return 0
//	})
//
//	obj := core.NewObject(&boundary.Parameters{
//	    ElementSize:  8,
//	    ElementCount: 1000,
//	    PopulateFn:   fill,
//	})
//	defer obj.Free()
//
// # Failure Values
//
// No boundary call panics. Handle-returning calls return a null handle,
// status calls return a negative status and boolean calls return false.
// Internal faults are logged through the package logger and otherwise
// look like ordinary failures.
//
// # Thread Safety
//
// Core is safe for concurrent use. Every Object operation takes the object's
// exclusive lock, so operations on distinct objects never contend.
// Core.Shutdown must not race with in-flight object operations.
package ufo
