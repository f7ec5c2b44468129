//go:build cgo

package main

/*
#include "ufo_types.h"

static int32_t call_populate(UfoPopulateCallout fn, void *data, size_t start, size_t end, unsigned char *dst) {
    return fn(data, start, end, dst);
}

static void call_writeback(UfoWritebackListener fn, void *data, UfoWriteListenerEvent ev) {
    fn(data, ev);
}

static void call_event(UfoEventCallback fn, void *data, const UfoEventandTimestamp *ev) {
    fn(data, ev);
}
*/
import "C"

import (
	"unsafe"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/boundary"
)

// cInvoker calls FuncPtrs as C function pointers.
type cInvoker struct{}

func (cInvoker) Populate(fn boundary.FuncPtr, ctx, start, end, dst uintptr) int32 {
	return int32(C.call_populate(
		C.UfoPopulateCallout(unsafe.Pointer(fn)),
		unsafe.Pointer(ctx),
		C.size_t(start),
		C.size_t(end),
		(*C.uchar)(unsafe.Pointer(dst)),
	))
}

func (cInvoker) Writeback(fn boundary.FuncPtr, ctx uintptr, ev ufo.WritebackEvent) {
	cev := C.UfoWriteListenerEvent{
		kind:      C.uint32_t(ev.Kind),
		start_idx: C.size_t(ev.StartIdx),
		end_idx:   C.size_t(ev.EndIdx),
		data_len:  C.size_t(len(ev.Data)),
	}
	if len(ev.Data) > 0 {
		// Data points into the object's mapping, not the Go heap.
		cev.data = (*C.uchar)(unsafe.Pointer(&ev.Data[0]))
	}
	C.call_writeback(C.UfoWritebackListener(unsafe.Pointer(fn)), unsafe.Pointer(ctx), cev)
}

func (cInvoker) Event(fn boundary.FuncPtr, ctx uintptr, ev ufo.TimestampedEvent) {
	cev := C.UfoEventandTimestamp{
		timestamp_nanos: C.uint64_t(ev.Timestamp.Nanoseconds()),
		event: C.UfoEvent{
			kind:         C.uint32_t(ev.Kind),
			disposition:  C.uint32_t(ev.Disposition),
			ufo_id:       C.uint64_t(ev.Object),
			header_ptr:   C.uintptr_t(ev.Address),
			start_idx:    C.size_t(ev.StartIdx),
			end_idx:      C.size_t(ev.EndIdx),
			memory_usage: C.size_t(ev.MemoryUsage),
		},
	}
	C.call_event(C.UfoEventCallback(unsafe.Pointer(fn)), unsafe.Pointer(ctx), &cev)
}
