// Package resource provides opaque handle management for the foreign boundary.
//
// A Handle owns one heap value and can be passed around as a nullable token.
// The null handle is a valid state that every boundary operation must accept
// and answer with its failure value.
//
// # Handle Lifecycle
//
//	h := resource.Wrap(value)   // move value to the heap
//	v := h.Get()                // nil iff the handle is null
//	v, ok := h.Release()        // first release wins, later ones are no-ops
//
// Release clears the stored pointer before the payload is dropped, so a
// payload is released exactly once even when Release races with itself or
// re-enters through a Dropper.
//
// # Token Table
//
// C memory cannot hold Go pointers. Table maps integer tokens to handles:
//
//	table := resource.NewTable[engineState]()
//
//	tok := table.Insert(resource.Wrap(state))
//	h, ok := table.Get(tok)
//	h, ok = table.Remove(tok)
//
// Token 0 is always invalid. Slots are reused through a free list, but every
// reuse bumps the slot generation, so a stale token never resolves to the
// handle that replaced it.
//
// # Memory Management
//
// Handles are not garbage collected on the caller's behalf. The caller must
// Release (or Remove and Release) every handle it created.
package resource
