package boundary

import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/engine"
)

// Invoker calls foreign functions by reference.
type Invoker interface {
	// Populate fills elements [start, end) at dst and returns 0 on success.
	Populate(fn FuncPtr, ctx, start, end, dst uintptr) int32
	Writeback(fn FuncPtr, ctx uintptr, ev ufo.WritebackEvent)
	Event(fn FuncPtr, ctx uintptr, ev ufo.TimestampedEvent)
}

// PopulateFunc is the Go form of a population callback.
type PopulateFunc func(ctx, start, end, dst uintptr) int32

// WritebackFunc is the Go form of a writeback listener.
type WritebackFunc func(ctx uintptr, ev ufo.WritebackEvent)

// EventFunc is the Go form of an engine event handler.
type EventFunc func(ctx uintptr, ev ufo.TimestampedEvent)

// FuncTable is an Invoker over registered Go functions. Each registration
// gets its own FuncPtr token.
type FuncTable struct {
	mu        sync.RWMutex
	next      FuncPtr
	populate  map[FuncPtr]PopulateFunc
	writeback map[FuncPtr]WritebackFunc
	event     map[FuncPtr]EventFunc
}

var defaultFuncs = NewFuncTable()

// Funcs returns the process-wide table used by cores created without an
// explicit Invoker.
func Funcs() *FuncTable { return defaultFuncs }

// NewFuncTable creates an empty table.
func NewFuncTable() *FuncTable {
	return &FuncTable{
		populate:  make(map[FuncPtr]PopulateFunc),
		writeback: make(map[FuncPtr]WritebackFunc),
		event:     make(map[FuncPtr]EventFunc),
	}
}

func (t *FuncTable) token() FuncPtr {
	t.next++
	return t.next
}

// RegisterPopulate registers fn and returns its reference.
func (t *FuncTable) RegisterPopulate(fn PopulateFunc) FuncPtr {
	t.mu.Lock()
	defer t.mu.Unlock()
	ptr := t.token()
	t.populate[ptr] = fn
	return ptr
}

// RegisterWriteback registers fn and returns its reference.
func (t *FuncTable) RegisterWriteback(fn WritebackFunc) FuncPtr {
	t.mu.Lock()
	defer t.mu.Unlock()
	ptr := t.token()
	t.writeback[ptr] = fn
	return ptr
}

// RegisterEvent registers fn and returns its reference.
func (t *FuncTable) RegisterEvent(fn EventFunc) FuncPtr {
	t.mu.Lock()
	defer t.mu.Unlock()
	ptr := t.token()
	t.event[ptr] = fn
	return ptr
}

// Unregister forgets ptr. Objects still referring to it fail to populate.
func (t *FuncTable) Unregister(ptr FuncPtr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.populate, ptr)
	delete(t.writeback, ptr)
	delete(t.event, ptr)
}

func (t *FuncTable) Populate(fn FuncPtr, ctx, start, end, dst uintptr) int32 {
	t.mu.RLock()
	f, ok := t.populate[fn]
	t.mu.RUnlock()
	if !ok {
		Logger().Warn("unknown populate function", zap.Uintptr("fn", uintptr(fn)))
		return -1
	}
	return f(ctx, start, end, dst)
}

func (t *FuncTable) Writeback(fn FuncPtr, ctx uintptr, ev ufo.WritebackEvent) {
	t.mu.RLock()
	f, ok := t.writeback[fn]
	t.mu.RUnlock()
	if ok {
		f(ctx, ev)
	}
}

func (t *FuncTable) Event(fn FuncPtr, ctx uintptr, ev ufo.TimestampedEvent) {
	t.mu.RLock()
	f, ok := t.event[fn]
	t.mu.RUnlock()
	if ok {
		f(ctx, ev)
	}
}

func populateAdapter(inv Invoker, fn FuncPtr, ctx uintptr) engine.PopulateFunc {
	return func(start, end uint64, dst []byte) error {
		var p uintptr
		if len(dst) > 0 {
			p = uintptr(unsafe.Pointer(&dst[0]))
		}
		if status := inv.Populate(fn, ctx, uintptr(start), uintptr(end), p); status != 0 {
			return fmt.Errorf("populate function returned %d", status)
		}
		return nil
	}
}

func writebackAdapter(inv Invoker, fn FuncPtr, ctx uintptr) engine.WritebackListener {
	if fn == 0 {
		return nil
	}
	return func(ev ufo.WritebackEvent) {
		inv.Writeback(fn, ctx, ev)
	}
}

func eventAdapter(inv Invoker, fn FuncPtr, ctx uintptr) engine.EventListener {
	return func(ev ufo.TimestampedEvent) {
		inv.Event(fn, ctx, ev)
	}
}
