package engine

import "errors"

// Sentinel errors returned by engine operations, wrapped in the module's
// structured error type. Use errors.Is to check for them.
var (
	// ErrInvalidConfig indicates contradictory or out-of-range parameters.
	ErrInvalidConfig = errors.New("engine: invalid config")

	// ErrNotFound indicates that no live object covers an address.
	// This is a benign miss.
	ErrNotFound = errors.New("engine: no object at address")

	// ErrFreed indicates an operation on an object after Free.
	ErrFreed = errors.New("engine: object freed")

	// ErrClosed indicates an operation after Shutdown.
	ErrClosed = errors.New("engine: shut down")

	// ErrPopulate indicates that a population closure reported failure.
	// The chunk stays unloaded; touching it again retries population.
	ErrPopulate = errors.New("engine: populate failed")
)
