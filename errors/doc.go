// Package errors provides structured error types for the lazy object boundary.
//
// Errors are categorized by Phase (which operation was running) and Kind
// (error category). The Error type carries the object id, the failing
// operation, a detail message and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAllocate, errors.KindInvalidConfig).
//		Op("new_object").
//		Detail("element size must be non-zero").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NotFound(errors.PhaseLookup, "object", "0x7f00dead0000")
//	err := errors.Fault(errors.PhaseBoundary, "ufo_reset", recovered)
//
// All errors implement the standard error interface and support errors.Is/As.
//
// The four categories callers care about map onto kinds:
//
//	configuration   KindInvalidConfig, KindInvalidInput, KindOverflow
//	resource        KindResource, KindClosed
//	lookup miss     KindNotFound, KindNilHandle, KindFreed
//	internal fault  KindFault, KindPoisoned
package errors
