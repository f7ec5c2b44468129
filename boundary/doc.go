// Package boundary exposes the lazy-object engine through opaque handles
// that a foreign caller can hold, with every entry point guarded so that
// no fault escapes to the caller.
//
// # Handles
//
// Core and Object are small values wrapping a resource.Handle. The zero
// value of each is the null handle; IsError reports it. Operations on a
// null handle return the operation's failure value:
//
//	Handle-returning   null handle
//	Status-returning   StatusNotFound
//	Pointer-returning  0
//	Boolean-returning  false
//
// Releasing operations (Core.Shutdown, Object.Free) clear the handle, so
// every copy of the value becomes null.
//
// # Callbacks
//
// Callbacks cross the boundary as a FuncPtr plus an opaque context word.
// An Invoker performs the actual call. The default invoker, Funcs, is a
// registry of Go functions; cmd/libufo installs an invoker that calls C
// function pointers. Parameters keeps the raw pairs so Core.Params can
// return exactly what the caller supplied.
//
// # Faults
//
// Every exported method runs inside one recover helper. A panic is logged
// through Logger and converted to the failure value. A panic raised while
// an object's lock is held poisons that object; later operations on it
// return the failure value (StatusFault from Core.Params) without touching
// the engine.
package boundary
