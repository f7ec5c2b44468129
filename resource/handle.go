package resource

import "sync/atomic"

// Handle is an owning, nullable reference to a heap value of type T.
// A nil *Handle and a released Handle are both null.
type Handle[T any] struct {
	ptr atomic.Pointer[T]
}

// Wrap moves v to the heap and returns a handle owning it.
func Wrap[T any](v T) *Handle[T] {
	p := new(T)
	*p = v

	h := &Handle[T]{}
	h.ptr.Store(p)
	return h
}

// None returns a null handle.
func None[T any]() *Handle[T] {
	return &Handle[T]{}
}

// Get returns the payload, or nil if the handle is null.
func (h *Handle[T]) Get() *T {
	if h == nil {
		return nil
	}
	return h.ptr.Load()
}

// IsNil reports whether the handle is null.
func (h *Handle[T]) IsNil() bool {
	return h.Get() == nil
}

// Release clears the handle and drops its payload.
// Only the first call on a non-null handle returns (payload, true).
func (h *Handle[T]) Release() (*T, bool) {
	if h == nil {
		return nil, false
	}

	p := h.ptr.Swap(nil)
	if p == nil {
		return nil, false
	}

	if d, ok := any(p).(Dropper); ok {
		d.Drop()
	} else if d, ok := any(*p).(Dropper); ok {
		d.Drop()
	}
	return p, true
}
