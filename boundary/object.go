package boundary

import (
	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/engine"
	"github.com/ufo-org/ufo-r-operators/errors"
	"github.com/ufo-org/ufo-r-operators/resource"
)

// Object is a handle to one lazy object. Handles obtained from NewObject
// and ObjectByAddress for the same object share the object's lock.
type Object struct {
	h *resource.Handle[objectRef]
}

type objectRef struct {
	obj     *engine.Object
	records *recordTable
}

func newObject(obj *engine.Object, records *recordTable) Object {
	return Object{h: resource.Wrap(objectRef{obj: obj, records: records})}
}

// locked runs fn under the object's lock. A panic in fn poisons the object.
func locked[T any](o Object, op string, fail T, fn func(ref *objectRef) (T, error)) T {
	return call(op, fail, func() T {
		ref := o.h.Get()
		if ref == nil {
			failure(op, errors.NilHandle(errors.PhaseBoundary, "object"))
			return fail
		}

		ref.obj.Lock()
		defer ref.obj.Unlock()
		defer poisonOnPanic(ref.obj.Poison)

		if ref.obj.Poisoned() {
			failure(op, errors.Poisoned(errors.PhaseBoundary, "object"))
			return fail
		}
		v, err := fn(ref)
		if err != nil {
			failure(op, err)
			return fail
		}
		return v
	})
}

// Reset discards the object's content and writeback data and waits for
// the engine to finish. The object's lock is released before waiting, so
// listeners may use the object. It returns 0 on success and -1 on failure.
func (o Object) Reset() int32 {
	w := locked(o, "reset", (*engine.Waiter)(nil), func(ref *objectRef) (*engine.Waiter, error) {
		return ref.obj.Reset()
	})
	return settle("reset", w)
}

// HeaderPtr returns the header address, or 0 on failure.
func (o Object) HeaderPtr() uintptr {
	return locked(o, "header_ptr", uintptr(0), func(ref *objectRef) (uintptr, error) {
		return ref.obj.HeaderPtr()
	})
}

// BodyPtr returns the page-aligned element data address, or 0 on failure.
func (o Object) BodyPtr() uintptr {
	return locked(o, "body_ptr", uintptr(0), func(ref *objectRef) (uintptr, error) {
		return ref.obj.BodyPtr()
	})
}

// Free releases the object and its callback record, then the handle.
// Other handles to the same object fail from then on.
func (o Object) Free() {
	w := locked(o, "free", (*engine.Waiter)(nil), func(ref *objectRef) (*engine.Waiter, error) {
		defer o.h.Release()
		defer ref.records.remove(ref.obj.ID())
		return ref.obj.Free()
	})
	settle("free", w)
}

// settle waits for engine work started under the object's lock.
func settle(op string, w *engine.Waiter) int32 {
	if w == nil {
		return -1
	}
	return call(op, int32(-1), func() int32 {
		if err := w.Wait(); err != nil {
			failure(op, err)
			return -1
		}
		return 0
	})
}

// IsError reports whether o is the null handle.
func (o Object) IsError() bool {
	return o.h.IsNil()
}

// ID returns the engine-issued object id, or 0 for the null handle.
func (o Object) ID() ufo.ObjectID {
	if ref := o.h.Get(); ref != nil {
		return ref.obj.ID()
	}
	return 0
}

// Same reports whether o and other refer to the same object. Null
// handles are never the same as anything.
func (o Object) Same(other Object) bool {
	a, b := o.h.Get(), other.h.Get()
	return a != nil && b != nil && a.obj == b.obj
}
