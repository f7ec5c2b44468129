package boundary

import (
	"github.com/ufo-org/ufo-r-operators/engine"
	"github.com/ufo-org/ufo-r-operators/errors"
)

// FuncPtr is a foreign function reference: a C code address under
// cmd/libufo, a FuncTable token otherwise. 0 means absent.
type FuncPtr uintptr

// Status is the result of a status-returning boundary call.
type Status int32

const (
	StatusOK       Status = 0
	StatusNotFound Status = -1 // null handle, freed object or missing record
	StatusFault    Status = -2 // internal fault or poisoned resource
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusFault:
		return "fault"
	}
	return "unknown"
}

// Parameters describes an object to create. The field order matches
// struct ufo_parameters in cmd/libufo/ufo.h.
type Parameters struct {
	HeaderSize   uint
	ElementSize  uint
	ElementCount uint
	MinLoadCount uint // 0 selects the engine default
	ReadOnly     bool

	PopulateData uintptr
	PopulateFn   FuncPtr

	WritebackData uintptr
	WritebackFn   FuncPtr // 0 means no writeback listener
}

// callbackRecord is the part of Parameters the engine does not keep.
type callbackRecord struct {
	populateData  uintptr
	populateFn    FuncPtr
	writebackData uintptr
	writebackFn   FuncPtr
}

func (p *Parameters) record() callbackRecord {
	return callbackRecord{
		populateData:  p.PopulateData,
		populateFn:    p.PopulateFn,
		writebackData: p.WritebackData,
		writebackFn:   p.WritebackFn,
	}
}

func (p *Parameters) objectConfig(inv Invoker) (engine.ObjectConfig, error) {
	if p.PopulateFn == 0 {
		return engine.ObjectConfig{}, errors.InvalidInput(errors.PhaseAllocate, "populate function is required")
	}
	return engine.ObjectConfig{
		Populate:     populateAdapter(inv, p.PopulateFn, p.PopulateData),
		Writeback:    writebackAdapter(inv, p.WritebackFn, p.WritebackData),
		HeaderSize:   uint64(p.HeaderSize),
		Stride:       uint64(p.ElementSize),
		ElementCount: uint64(p.ElementCount),
		MinLoadCount: uint64(p.MinLoadCount),
		ReadOnly:     p.ReadOnly,
	}, nil
}

// parametersOf joins an object's live configuration with its record.
func parametersOf(cfg engine.ObjectConfig, rec callbackRecord) Parameters {
	return Parameters{
		HeaderSize:    uint(cfg.HeaderSize),
		ElementSize:   uint(cfg.Stride),
		ElementCount:  uint(cfg.ElementCount),
		MinLoadCount:  uint(cfg.MinLoadCount),
		ReadOnly:      cfg.ReadOnly,
		PopulateData:  rec.populateData,
		PopulateFn:    rec.populateFn,
		WritebackData: rec.writebackData,
		WritebackFn:   rec.writebackFn,
	}
}
