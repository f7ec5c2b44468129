package boundary

import (
	"go.uber.org/zap"

	"github.com/ufo-org/ufo-r-operators/engine"
	"github.com/ufo-org/ufo-r-operators/errors"
	"github.com/ufo-org/ufo-r-operators/resource"
)

// Config holds configuration for NewCoreWithConfig.
type Config struct {
	Engine engine.Config

	// Invoker calls the caller's function pointers. nil selects Funcs().
	Invoker Invoker
}

// Core is a handle to one engine instance.
type Core struct {
	h *resource.Handle[coreState]
}

type coreState struct {
	engine  *engine.Core
	inv     Invoker
	records *recordTable
}

func (s *coreState) Drop() {
	s.engine.Shutdown()
	s.records.clear()
}

// NewCore starts an engine writing back under path with the given
// watermarks in bytes. Reversed watermarks are swapped. It returns the
// null Core if low == high or the engine cannot start.
func NewCore(path string, low, high uint) Core {
	return NewCoreWithConfig(&Config{
		Engine: engine.Config{
			WritebackPath: path,
			LowWatermark:  uint64(low),
			HighWatermark: uint64(high),
		},
	})
}

// NewCoreFromFile starts an engine configured by a JSONC file.
func NewCoreFromFile(path string) Core {
	return call("new_core_from_file", Core{}, func() Core {
		cfg, err := engine.LoadConfig(path)
		if err != nil {
			failure("new_core_from_file", err)
			return Core{}
		}
		return NewCoreWithConfig(&Config{Engine: cfg})
	})
}

// NewCoreWithConfig starts an engine from cfg. A nil cfg uses defaults,
// which fail because both watermarks are zero.
func NewCoreWithConfig(cfg *Config) Core {
	return call("new_core", Core{}, func() Core {
		if cfg == nil {
			cfg = &Config{}
		}
		inv := cfg.Invoker
		if inv == nil {
			inv = Funcs()
		}

		e, err := engine.New(cfg.Engine)
		if err != nil {
			failure("new_core", err)
			return Core{}
		}
		Logger().Debug("core created", zap.Stringer("core", e.ID()))
		return Core{h: resource.Wrap(coreState{
			engine:  e,
			inv:     inv,
			records: newRecordTable(),
		})}
	})
}

// Shutdown stops the engine, frees every object and releases the handle.
// It must not run concurrently with operations on the core's objects.
func (c Core) Shutdown() {
	call("shutdown", struct{}{}, func() struct{} {
		c.h.Release()
		return struct{}{}
	})
}

// IsError reports whether c is the null handle.
func (c Core) IsError() bool {
	return c.h.IsNil()
}

// Engine returns the underlying engine, or nil for the null handle.
func (c Core) Engine() *engine.Core {
	if s := c.h.Get(); s != nil {
		return s.engine
	}
	return nil
}

// Len returns the number of live callback records.
func (c Core) Len() int {
	return call("len", 0, func() int {
		s := c.h.Get()
		if s == nil {
			return 0
		}
		return s.records.len()
	})
}

// ObjectByAddress returns a new handle to the object whose range contains
// ptr. A miss returns the null Object.
func (c Core) ObjectByAddress(ptr uintptr) Object {
	return call("get_by_address", Object{}, func() Object {
		s := c.h.Get()
		if s == nil {
			return Object{}
		}
		obj, err := s.engine.LookupByAddress(ptr)
		if err != nil {
			return Object{}
		}
		return newObject(obj, s.records)
	})
}

// IsObjectAddress reports whether ptr lies in a live object's range.
func (c Core) IsObjectAddress(ptr uintptr) bool {
	return call("address_is_object", false, func() bool {
		s := c.h.Get()
		if s == nil {
			return false
		}
		_, err := s.engine.LookupByAddress(ptr)
		return err == nil
	})
}

// Params fills out with the parameters obj was created with.
func (c Core) Params(obj Object, out *Parameters) Status {
	return call("get_parameters", StatusFault, func() Status {
		s := c.h.Get()
		ref := obj.h.Get()
		if s == nil || ref == nil || out == nil || ref.records != s.records {
			return StatusNotFound
		}

		ref.obj.Lock()
		defer ref.obj.Unlock()
		defer poisonOnPanic(ref.obj.Poison)

		if ref.obj.Poisoned() {
			failure("get_parameters", errors.Poisoned(errors.PhaseLookup, "object"))
			return StatusFault
		}
		if _, err := ref.obj.HeaderPtr(); err != nil {
			return StatusNotFound
		}
		rec, err := s.records.get(ref.obj.ID())
		if err != nil {
			failure("get_parameters", err)
			if errors.IsFault(err) {
				return StatusFault
			}
			return StatusNotFound
		}

		*out = parametersOf(ref.obj.Config(), rec)
		return StatusOK
	})
}

// NewObject creates an object described by p. The callback record is
// stored only once the engine has allocated the object.
func (c Core) NewObject(p *Parameters) Object {
	return call("new_object", Object{}, func() Object {
		s := c.h.Get()
		if s == nil || p == nil {
			return Object{}
		}

		cfg, err := p.objectConfig(s.inv)
		if err != nil {
			failure("new_object", err)
			return Object{}
		}
		obj, err := s.engine.Allocate(cfg)
		if err != nil {
			failure("new_object", err)
			return Object{}
		}
		if err := s.records.insert(obj.ID(), p.record()); err != nil {
			failure("new_object", err)
			if w, ferr := obj.Free(); ferr == nil {
				_ = w.Wait()
			}
			return Object{}
		}
		return newObject(obj, s.records)
	})
}

// SetEventHandler forwards every engine event to fn(ctx, event),
// replacing any previous handler.
func (c Core) SetEventHandler(ctx uintptr, fn FuncPtr) bool {
	return call("new_event_handler", false, func() bool {
		s := c.h.Get()
		if s == nil || fn == 0 {
			return false
		}
		s.engine.SetEventListener(eventAdapter(s.inv, fn, ctx))
		return true
	})
}

// ClearEventHandler removes the event handler. Once it returns the old
// handler is not called again.
func (c Core) ClearEventHandler() bool {
	return call("clear_event_handler", false, func() bool {
		s := c.h.Get()
		if s == nil {
			return false
		}
		s.engine.SetEventListener(nil)
		return true
	})
}

// Prefault materializes the chunk containing ptr.
func (c Core) Prefault(ptr uintptr) bool {
	return call("prefault", false, func() bool {
		s := c.h.Get()
		if s == nil {
			return false
		}
		if err := s.engine.Touch(ptr); err != nil {
			failure("prefault", err)
			return false
		}
		return true
	})
}
