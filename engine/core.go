package engine

import (
	"container/list"
	"fmt"
	"hash/maphash"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/errors"
)

// Core is one paging engine instance.
type Core struct {
	log     *zap.Logger
	cfg     Config
	id      uuid.UUID
	dir     string
	started time.Time
	page    uint64
	seed    maphash.Seed

	mu      sync.RWMutex
	objects []*Object // sorted by mapping base
	nextID  ufo.ObjectID
	closed  bool

	resMu    sync.Mutex
	resident list.List // of residentChunk, oldest first
	resBytes atomic.Uint64

	loads singleflight.Group

	events dispatcher
}

type residentChunk struct {
	obj   *Object
	idx   uint64
	gen   uint64
	bytes uint64
}

// New starts an engine. The writeback directory is created eagerly so a
// bad WritebackPath fails here rather than at the first eviction.
func New(cfg Config) (*Core, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	page := uint64(unix.Getpagesize())
	if page == 0 || page&(page-1) != 0 {
		return nil, errors.Resource(errors.PhaseCreate, fmt.Sprintf("unusable page size %d", page), nil)
	}

	id := uuid.New()
	if err := os.MkdirAll(cfg.WritebackPath, 0o700); err != nil {
		return nil, errors.Resource(errors.PhaseCreate, "prepare writeback path", err)
	}
	dir, err := os.MkdirTemp(cfg.WritebackPath, "ufo-"+id.String()+"-")
	if err != nil {
		return nil, errors.Resource(errors.PhaseCreate, "create writeback directory", err)
	}

	c := &Core{
		log:     Logger().With(zap.Stringer("core", id)),
		cfg:     cfg,
		id:      id,
		dir:     dir,
		started: time.Now(),
		page:    page,
		seed:    maphash.MakeSeed(),
	}
	c.events.init()
	c.log.Debug("engine started",
		zap.String("writeback_dir", dir),
		zap.Uint64("low_watermark", cfg.LowWatermark),
		zap.Uint64("high_watermark", cfg.HighWatermark))
	return c, nil
}

// ID returns the engine instance id.
func (c *Core) ID() uuid.UUID { return c.id }

// Config returns the normalized configuration.
func (c *Core) Config() Config { return c.cfg }

// WritebackDir returns the engine's private writeback directory.
func (c *Core) WritebackDir() string { return c.dir }

// PageSize returns the page size the engine aligns to.
func (c *Core) PageSize() uint64 { return c.page }

// Resident returns the number of resident chunk bytes.
func (c *Core) Resident() uint64 { return c.resBytes.Load() }

// Len returns the number of live objects.
func (c *Core) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}

// Allocate reserves address space for a new object. No content is
// materialized until the object is touched.
func (c *Core) Allocate(cfg ObjectConfig) (*Object, error) {
	if cfg.Populate == nil {
		return nil, invalidObject("populate function is required")
	}
	lay, err := newLayout(cfg, c.page, c.cfg.DefaultLoadBytes)
	if err != nil {
		return nil, err
	}

	mem, err := unix.Mmap(-1, 0, int(lay.mappedBytes),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, errors.Resource(errors.PhaseAllocate,
			fmt.Sprintf("reserve %d bytes", lay.mappedBytes), err)
	}

	o := &Object{
		core:   c,
		cfg:    cfg,
		layout: lay,
		mem:    mem,
		base:   uintptr(unsafe.Pointer(&mem[0])),
		chunks:  make([]chunk, lay.chunkCount),
		loading: make(map[uint64]uint64),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = unix.Munmap(mem)
		return nil, c.closedErr(errors.PhaseAllocate)
	}
	c.nextID++
	o.id = c.nextID
	i := sort.Search(len(c.objects), func(i int) bool { return c.objects[i].base > o.base })
	c.objects = append(c.objects, nil)
	copy(c.objects[i+1:], c.objects[i:])
	c.objects[i] = o
	c.mu.Unlock()

	c.log.Debug("object allocated",
		zap.Uint64("object", uint64(o.id)),
		zap.Uint64("mapped_bytes", lay.mappedBytes),
		zap.Uint64("chunk_elements", lay.chunkElems))
	c.emit(ufo.Event{Kind: ufo.EventAllocate, Object: o.id, Address: o.headerAddr()})
	return o, nil
}

// LookupByAddress returns the live object whose range
// [HeaderPtr, BodyPtr + ElementCount*Stride) contains addr.
func (c *Core) LookupByAddress(addr uintptr) (*Object, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := sort.Search(len(c.objects), func(i int) bool { return c.objects[i].base > addr })
	if i > 0 {
		if o := c.objects[i-1]; o.contains(addr) {
			return o, nil
		}
	}
	err := errors.NotFound(errors.PhaseLookup, "object at address", fmt.Sprintf("%#x", addr))
	err.Cause = ErrNotFound
	return nil, err
}

// Touch materializes the chunk containing addr, as a page fault on addr
// would. Header addresses are always resident.
func (c *Core) Touch(addr uintptr) error {
	o, err := c.LookupByAddress(addr)
	if err != nil {
		return err
	}
	off := uint64(addr - o.base)
	if off < o.layout.bodyOffset {
		return nil
	}
	return o.load((off - o.layout.bodyOffset) / o.layout.chunkBytes)
}

// SetEventListener replaces the engine-wide listener; nil removes it.
// It waits for deliveries running on other goroutines, so once it returns
// the previous listener is never called again. It may be called from
// inside the listener. It must not be called while holding a lock the
// listener takes.
func (c *Core) SetEventListener(l EventListener) {
	c.events.set(l)
}

// Shutdown frees every object, removes the writeback directory and drops
// the listener. It is idempotent.
func (c *Core) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	objects := append([]*Object(nil), c.objects...)
	c.mu.Unlock()

	for _, o := range objects {
		finish, err := o.detach(errors.PhaseShutdown)
		if err == nil {
			err = finish()
		}
		if err != nil && errors.KindOf(err) != errors.KindFreed {
			c.log.Warn("free during shutdown", zap.Uint64("object", uint64(o.id)), zap.Error(err))
		}
	}
	if err := os.RemoveAll(c.dir); err != nil {
		c.log.Warn("remove writeback directory", zap.String("dir", c.dir), zap.Error(err))
	}

	c.emit(ufo.Event{Kind: ufo.EventShutdown})
	c.SetEventListener(nil)
	c.log.Debug("engine stopped")
}

func (c *Core) unregister(o *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.objects {
		if cur == o {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			return
		}
	}
}

func (c *Core) closedErr(phase errors.Phase) error {
	err := errors.Closed(phase, "engine")
	err.Cause = ErrClosed
	return err
}

// admit queues a freshly loaded chunk, already counted by fill, and evicts
// older chunks when the high watermark is crossed. Victims are unloaded
// after resMu is released.
func (c *Core) admit(rc residentChunk) {
	c.resMu.Lock()
	newest := c.resident.PushBack(rc)
	total := c.resBytes.Load()

	var victims []residentChunk
	if total > c.cfg.HighWatermark {
		for total > c.cfg.LowWatermark {
			front := c.resident.Front()
			if front == nil || front == newest {
				break
			}
			v := c.resident.Remove(front).(residentChunk)
			if !v.obj.isLive(v.idx, v.gen) {
				continue
			}
			victims = append(victims, v)
			total -= v.bytes
		}
	}
	c.resMu.Unlock()

	for _, v := range victims {
		if !v.obj.unload(v.idx, v.gen) {
			c.resMu.Lock()
			c.resident.PushBack(v)
			c.resMu.Unlock()
		}
	}
}

func (c *Core) release(n uint64) {
	if n > 0 {
		c.resBytes.Add(^(n - 1))
	}
}

func (c *Core) hash(b []byte) uint64 {
	return maphash.Bytes(c.seed, b)
}

func (c *Core) emit(ev ufo.Event) {
	c.events.deliver(func(l EventListener) {
		ev.MemoryUsage = c.resBytes.Load()
		te := ufo.TimestampedEvent{Event: ev, Timestamp: time.Since(c.started)}

		defer func() {
			if r := recover(); r != nil {
				c.log.Error("event listener panicked",
					zap.Stringer("event", ev.Kind),
					zap.Any("panic", r))
			}
		}()
		l(te)
	})
}
