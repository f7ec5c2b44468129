//go:build cgo

package main

/*
#include "ufo_types.h"
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/ufo-org/ufo-r-operators/boundary"
	"github.com/ufo-org/ufo-r-operators/engine"
	"github.com/ufo-org/ufo-r-operators/resource"
)

func coreToken(core *C.UfoCore) resource.Token {
	if core == nil {
		return 0
	}
	return resource.Token(core.ptr)
}

func objectToken(obj *C.UfoObj) resource.Token {
	if obj == nil {
		return 0
	}
	return resource.Token(obj.ptr)
}

//export ufo_new_core
func ufo_new_core(path *C.char, low, high C.size_t) C.UfoCore {
	var wb string
	if path != nil {
		wb = C.GoString(path)
	}
	core := boundary.NewCoreWithConfig(&boundary.Config{
		Engine: engine.Config{
			WritebackPath: wb,
			LowWatermark:  uint64(low),
			HighWatermark: uint64(high),
		},
		Invoker: cInvoker{},
	})
	return C.UfoCore{ptr: C.uintptr_t(insertCore(core))}
}

//export ufo_core_shutdown
func ufo_core_shutdown(core C.UfoCore) {
	removeCore(resource.Token(core.ptr)).Shutdown()
}

//export ufo_core_is_error
func ufo_core_is_error(core *C.UfoCore) C.bool {
	return C.bool(lookupCore(coreToken(core)).IsError())
}

//export ufo_get_by_address
func ufo_get_by_address(core *C.UfoCore, ptr unsafe.Pointer) C.UfoObj {
	tok := coreToken(core)
	obj := lookupCore(tok).ObjectByAddress(uintptr(ptr))
	return C.UfoObj{ptr: C.uintptr_t(insertObject(obj, tok))}
}

//export ufo_address_is_ufo_object
func ufo_address_is_ufo_object(core *C.UfoCore, ptr unsafe.Pointer) C.bool {
	return C.bool(lookupCore(coreToken(core)).IsObjectAddress(uintptr(ptr)))
}

//export ufo_get_params
func ufo_get_params(core *C.UfoCore, obj *C.UfoObj, params *C.UfoParameters) C.int32_t {
	if params == nil {
		return C.int32_t(boundary.StatusNotFound)
	}

	var p boundary.Parameters
	status := lookupCore(coreToken(core)).Params(lookupObject(objectToken(obj)), &p)
	if status != boundary.StatusOK {
		return C.int32_t(status)
	}

	params.header_size = C.size_t(p.HeaderSize)
	params.element_size = C.size_t(p.ElementSize)
	params.element_ct = C.size_t(p.ElementCount)
	params.min_load_ct = C.size_t(p.MinLoadCount)
	params.read_only = C.bool(p.ReadOnly)
	params.populate_data = unsafe.Pointer(p.PopulateData)
	params.populate_fn = C.UfoPopulateCallout(unsafe.Pointer(p.PopulateFn))
	params.writeback_listener_data = unsafe.Pointer(p.WritebackData)
	params.writeback_listener = C.UfoWritebackListener(unsafe.Pointer(p.WritebackFn))
	return C.int32_t(boundary.StatusOK)
}

//export ufo_new_object
func ufo_new_object(core *C.UfoCore, prototype *C.UfoParameters) C.UfoObj {
	if prototype == nil {
		return C.UfoObj{}
	}
	tok := coreToken(core)
	obj := lookupCore(tok).NewObject(&boundary.Parameters{
		HeaderSize:    uint(prototype.header_size),
		ElementSize:   uint(prototype.element_size),
		ElementCount:  uint(prototype.element_ct),
		MinLoadCount:  uint(prototype.min_load_ct),
		ReadOnly:      bool(prototype.read_only),
		PopulateData:  uintptr(prototype.populate_data),
		PopulateFn:    boundary.FuncPtr(unsafe.Pointer(prototype.populate_fn)),
		WritebackData: uintptr(prototype.writeback_listener_data),
		WritebackFn:   boundary.FuncPtr(unsafe.Pointer(prototype.writeback_listener)),
	})
	return C.UfoObj{ptr: C.uintptr_t(insertObject(obj, tok))}
}

//export ufo_new_event_handler
func ufo_new_event_handler(core *C.UfoCore, data unsafe.Pointer, callback C.UfoEventCallback) C.bool {
	fn := boundary.FuncPtr(unsafe.Pointer(callback))
	return C.bool(lookupCore(coreToken(core)).SetEventHandler(uintptr(data), fn))
}

//export ufo_clear_event_handler
func ufo_clear_event_handler(core *C.UfoCore) C.bool {
	return C.bool(lookupCore(coreToken(core)).ClearEventHandler())
}

//export ufo_prefault
func ufo_prefault(core *C.UfoCore, ptr unsafe.Pointer) C.bool {
	return C.bool(lookupCore(coreToken(core)).Prefault(uintptr(ptr)))
}

//export ufo_reset
func ufo_reset(obj *C.UfoObj) C.int32_t {
	return C.int32_t(lookupObject(objectToken(obj)).Reset())
}

//export ufo_header_ptr
func ufo_header_ptr(obj *C.UfoObj) unsafe.Pointer {
	return unsafe.Pointer(lookupObject(objectToken(obj)).HeaderPtr())
}

//export ufo_body_ptr
func ufo_body_ptr(obj *C.UfoObj) unsafe.Pointer {
	return unsafe.Pointer(lookupObject(objectToken(obj)).BodyPtr())
}

//export ufo_free
func ufo_free(obj C.UfoObj) {
	removeObject(resource.Token(obj.ptr)).Free()
}

//export ufo_is_error
func ufo_is_error(obj *C.UfoObj) C.bool {
	return C.bool(lookupObject(objectToken(obj)).IsError())
}

//export ufo_begin_log
func ufo_begin_log() {
	if err := boundary.BeginLog(); err != nil {
		boundary.Logger().Warn("install logger", zap.Error(err))
	}
}
