package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/errors"
)

// Object is one lazy object.
type Object struct {
	mu       sync.Mutex
	poisoned atomic.Bool

	core   *Core
	cfg    ObjectConfig
	layout layout
	base   uintptr
	id     ufo.ObjectID

	state   sync.Mutex
	mem     []byte // nil once freed
	chunks  []chunk
	wb      *os.File
	freed   bool
	loading map[uint64]uint64 // chunk -> goroutine running its populate function
}

type chunk struct {
	live    atomic.Uint64 // load generation while resident, 0 otherwise
	gen     uint64
	hash    uint64
	written bool // a copy exists in the writeback file
}

// Lock takes the caller lock. The engine never takes it itself.
func (o *Object) Lock() { o.mu.Lock() }

// Unlock releases the caller lock.
func (o *Object) Unlock() { o.mu.Unlock() }

// Poison marks the object as contaminated by a fault in a caller's
// critical section. The flag is never cleared.
func (o *Object) Poison() { o.poisoned.Store(true) }

// Poisoned reports whether Poison was called.
func (o *Object) Poisoned() bool { return o.poisoned.Load() }

// ID returns the engine-issued object id.
func (o *Object) ID() ufo.ObjectID { return o.id }

// Config returns the configuration the object was allocated with.
func (o *Object) Config() ObjectConfig { return o.cfg }

// LoadCount returns the effective number of elements per chunk.
func (o *Object) LoadCount() uint64 { return o.layout.chunkElems }

// HeaderPtr returns the address of the header region.
func (o *Object) HeaderPtr() (uintptr, error) {
	if err := o.checkLive(errors.PhaseLookup); err != nil {
		return 0, err
	}
	return o.headerAddr(), nil
}

// BodyPtr returns the page-aligned address of the element data.
func (o *Object) BodyPtr() (uintptr, error) {
	if err := o.checkLive(errors.PhaseLookup); err != nil {
		return 0, err
	}
	return o.base + uintptr(o.layout.bodyOffset), nil
}

// IsLoaded reports whether element idx is resident.
func (o *Object) IsLoaded(idx uint64) bool {
	if idx >= o.cfg.ElementCount {
		return false
	}
	return o.chunks[idx/o.layout.chunkElems].live.Load() != 0
}

// Reset discards populated content and writeback data. The header is
// kept. Content is dropped before Reset returns; the waiter settles once
// listeners have been told.
func (o *Object) Reset() (*Waiter, error) {
	err := o.reset()
	if errors.KindOf(err) == errors.KindFreed {
		return nil, err
	}
	w := newWaiter()
	go func() {
		if err == nil {
			o.notifyWriteback(ufo.WritebackEvent{Kind: ufo.WritebackReset, EndIdx: o.cfg.ElementCount})
			o.core.emit(ufo.Event{Kind: ufo.EventReset, Object: o.id, Address: o.headerAddr()})
		}
		w.finish(err)
	}()
	return w, nil
}

// Free unmaps the object and releases its writeback file. The object is
// unreachable once Free returns; the waiter settles after the mapping is
// gone.
func (o *Object) Free() (*Waiter, error) {
	finish, err := o.detach(errors.PhaseFree)
	if err != nil {
		return nil, err
	}
	w := newWaiter()
	go func() { w.finish(finish()) }()
	return w, nil
}

func (o *Object) headerAddr() uintptr {
	return o.base + uintptr(o.layout.headerOffset)
}

func (o *Object) contains(addr uintptr) bool {
	start := o.headerAddr()
	end := o.base + uintptr(o.layout.bodyOffset+o.layout.bodyBytes)
	return addr >= start && addr < end
}

func (o *Object) checkLive(phase errors.Phase) error {
	o.state.Lock()
	defer o.state.Unlock()
	if o.freed {
		return o.freedErr(phase)
	}
	return nil
}

func (o *Object) freedErr(phase errors.Phase) error {
	err := errors.Freed(phase, uint64(o.id))
	err.Cause = ErrFreed
	return err
}

func (o *Object) isLive(idx, gen uint64) bool {
	return o.chunks[idx].live.Load() == gen
}

// body returns the element data. state must be held and the object live.
func (o *Object) body() []byte {
	return o.mem[o.layout.bodyOffset : o.layout.bodyOffset+o.layout.bodyBytes]
}

func (o *Object) load(idx uint64) error {
	if o.loadingHere(idx) {
		return errors.New(errors.PhasePopulate, errors.KindInvalidInput).
			Object(uint64(o.id)).
			Detail("chunk %d touched by its own populate function", idx).
			Build()
	}

	// Only the goroutine that ran fill admits and announces the chunk, and
	// it does so outside the flight.
	var rc residentChunk
	var ev ufo.Event
	key := strconv.FormatUint(uint64(o.id), 10) + "/" + strconv.FormatUint(idx, 10)
	_, err, _ := o.core.loads.Do(key, func() (any, error) {
		var err error
		rc, ev, err = o.fill(idx)
		return nil, err
	})
	if err != nil || rc.bytes == 0 {
		return err
	}
	o.core.admit(rc)
	o.core.emit(ev)
	return nil
}

// loadingHere reports whether the calling goroutine is inside the populate
// function of chunk idx.
func (o *Object) loadingHere(idx uint64) bool {
	o.state.Lock()
	g, ok := o.loading[idx]
	o.state.Unlock()
	return ok && g == goid()
}

// fill materializes chunk idx. A zero residentChunk means it already was.
// The populate function runs without state held and writes into a private
// buffer that is copied into the mapping once it succeeds.
func (o *Object) fill(idx uint64) (residentChunk, ufo.Event, error) {
	lo, hi := o.layout.chunkSpan(idx)
	start, end := o.layout.chunkElements(idx, o.cfg.ElementCount)

	o.state.Lock()
	if o.freed {
		o.state.Unlock()
		return residentChunk{}, ufo.Event{}, o.freedErr(errors.PhasePopulate)
	}
	c := &o.chunks[idx]
	if c.live.Load() != 0 {
		o.state.Unlock()
		return residentChunk{}, ufo.Event{}, nil
	}

	if c.written {
		data := o.body()[lo:hi]
		if _, err := o.wb.ReadAt(data, int64(lo)); err != nil && err != io.EOF {
			o.discard(data)
			o.state.Unlock()
			return residentChunk{}, ufo.Event{}, errors.Wrap(errors.PhasePopulate, errors.KindResource, err, "read writeback file")
		}
	} else {
		o.loading[idx] = goid()
		o.state.Unlock()

		scratch := make([]byte, hi-lo)
		err := o.populate(start, end, scratch)

		o.state.Lock()
		delete(o.loading, idx)
		switch {
		case err != nil:
			o.state.Unlock()
			return residentChunk{}, ufo.Event{}, err
		case o.freed:
			o.state.Unlock()
			return residentChunk{}, ufo.Event{}, o.freedErr(errors.PhasePopulate)
		case c.live.Load() != 0:
			o.state.Unlock()
			return residentChunk{}, ufo.Event{}, nil
		}
		copy(o.body()[lo:hi], scratch)
	}

	c.gen++
	c.live.Store(c.gen)
	if !o.cfg.ReadOnly {
		c.hash = o.core.hash(o.body()[lo:hi])
	}
	o.core.resBytes.Add(hi - lo)
	rc := residentChunk{obj: o, idx: idx, gen: c.gen, bytes: hi - lo}
	o.state.Unlock()

	return rc, ufo.Event{
		Kind:     ufo.EventPopulate,
		Object:   o.id,
		Address:  o.headerAddr(),
		StartIdx: start,
		EndIdx:   end,
	}, nil
}

func (o *Object) populate(start, end uint64, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.core.log.Error("populate function panicked",
				zap.Uint64("object", uint64(o.id)),
				zap.Any("panic", r))
			err = errors.PopulateFailed(uint64(o.id), start, end, fmt.Errorf("%w: panic: %v", ErrPopulate, r))
		}
	}()

	if err := o.cfg.Populate(start, end, data); err != nil {
		return errors.PopulateFailed(uint64(o.id), start, end, fmt.Errorf("%w: %w", ErrPopulate, err))
	}
	return nil
}

// unload evicts chunk idx if it is still at load generation gen. It
// reports false when the chunk had to stay resident.
func (o *Object) unload(idx, gen uint64) bool {
	lo, hi := o.layout.chunkSpan(idx)
	start, end := o.layout.chunkElements(idx, o.cfg.ElementCount)

	o.state.Lock()
	if o.freed {
		o.state.Unlock()
		return true
	}
	c := &o.chunks[idx]
	if c.live.Load() != gen {
		o.state.Unlock()
		return true
	}

	data := o.body()[lo:hi]
	var written []byte
	disposition := ufo.DispositionReadOnly
	if !o.cfg.ReadOnly {
		disposition = ufo.DispositionClean
		if o.core.hash(data) != c.hash {
			if err := o.writeChunk(data, lo); err != nil {
				o.state.Unlock()
				o.core.log.Error("writeback failed, chunk stays resident",
					zap.Uint64("object", uint64(o.id)),
					zap.Uint64("chunk", idx),
					zap.Error(err))
				return false
			}
			c.written = true
			disposition = ufo.DispositionWritten
			if o.cfg.Writeback != nil {
				written = bytes.Clone(data)
			}
		}
	}

	c.live.Store(0)
	o.core.release(hi - lo)
	o.discard(data)
	addr := o.headerAddr()
	o.state.Unlock()

	if written != nil {
		o.notifyWriteback(ufo.WritebackEvent{
			Kind:     ufo.WritebackChunk,
			StartIdx: start,
			EndIdx:   end,
			Data:     written,
		})
	}
	o.core.emit(ufo.Event{
		Kind:        ufo.EventUnload,
		Object:      o.id,
		Address:     addr,
		StartIdx:    start,
		EndIdx:      end,
		Disposition: disposition,
	})
	return true
}

func (o *Object) writeChunk(data []byte, off uint64) error {
	if o.wb == nil {
		path := filepath.Join(o.core.dir, strconv.FormatUint(uint64(o.id), 10)+".wb")
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		o.wb = f
	}
	_, err := o.wb.WriteAt(data, int64(off))
	return err
}

func (o *Object) notifyWriteback(ev ufo.WritebackEvent) {
	if o.cfg.Writeback == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.core.log.Error("writeback listener panicked",
				zap.Uint64("object", uint64(o.id)),
				zap.Any("panic", r))
		}
	}()
	o.cfg.Writeback(ev)
}

// discard returns the pages behind data to the kernel; the next read sees zeros.
func (o *Object) discard(data []byte) {
	if len(data) == 0 {
		return
	}
	if err := unix.Madvise(data, unix.MADV_DONTNEED); err != nil || runtime.GOOS != "linux" {
		clear(data)
	}
}

// dropAll marks every chunk unloaded and returns the bytes released.
// state must be held.
func (o *Object) dropAll() uint64 {
	var dropped uint64
	for i := range o.chunks {
		c := &o.chunks[i]
		if c.live.Load() != 0 {
			lo, hi := o.layout.chunkSpan(uint64(i))
			dropped += hi - lo
			c.live.Store(0)
		}
		c.written = false
		c.hash = 0
	}
	return dropped
}

// reset drops content and writeback data. Notifications are the caller's.
func (o *Object) reset() error {
	o.state.Lock()
	defer o.state.Unlock()

	if o.freed {
		return o.freedErr(errors.PhaseReset)
	}

	o.core.release(o.dropAll())
	o.discard(o.body())
	if o.wb != nil {
		if err := o.wb.Truncate(0); err != nil {
			return errors.Wrap(errors.PhaseReset, errors.KindResource, err, "truncate writeback file")
		}
	}
	return nil
}

// detach marks the object freed and removes it from the engine. The
// returned function releases the mapping and the writeback file and emits
// EventFree; it must be called exactly once and takes no locks.
func (o *Object) detach(phase errors.Phase) (func() error, error) {
	o.state.Lock()
	if o.freed {
		o.state.Unlock()
		return nil, o.freedErr(phase)
	}
	o.freed = true
	o.core.release(o.dropAll())
	mem, wb := o.mem, o.wb
	o.mem, o.wb = nil, nil
	addr := o.headerAddr()
	o.state.Unlock()

	o.core.unregister(o)

	return func() error {
		var errs []error
		if wb != nil {
			if err := wb.Close(); err != nil {
				errs = append(errs, err)
			}
			if err := os.Remove(wb.Name()); err != nil {
				errs = append(errs, err)
			}
		}
		if err := unix.Munmap(mem); err != nil {
			errs = append(errs, err)
		}

		o.core.emit(ufo.Event{Kind: ufo.EventFree, Object: o.id, Address: addr})
		if len(errs) > 0 {
			return errors.Wrap(errors.PhaseFree, errors.KindResource, multierr.Combine(errs...), "release object resources")
		}
		return nil
	}, nil
}
