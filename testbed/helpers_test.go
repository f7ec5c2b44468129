package testbed

import (
	"encoding/binary"
	"os"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/boundary"
	"github.com/ufo-org/ufo-r-operators/engine"
)

var page = uint(os.Getpagesize())

// pressure is a core with a small resident budget and recorded events.
type pressure struct {
	core  boundary.Core
	funcs *boundary.FuncTable

	// seq fills element i with seed ^ i, seed taken from the context word.
	seq boundary.FuncPtr

	mu     sync.Mutex
	events []ufo.TimestampedEvent
}

func newPressure(t *testing.T, lowPages, highPages uint) *pressure {
	t.Helper()
	logger := zaptest.NewLogger(t)
	boundary.SetLogger(logger)
	engine.SetLogger(logger)
	t.Cleanup(func() {
		boundary.SetLogger(nil)
		engine.SetLogger(nil)
	})

	p := &pressure{funcs: boundary.NewFuncTable()}
	p.seq = p.funcs.RegisterPopulate(func(seed, start, end, dst uintptr) int32 {
		buf := bytesAt(dst, int(end-start)*8)
		for i := start; i < end; i++ {
			binary.LittleEndian.PutUint64(buf[(i-start)*8:], uint64(seed)^uint64(i))
		}
		return 0
	})

	p.core = boundary.NewCoreWithConfig(&boundary.Config{
		Engine: engine.Config{
			WritebackPath: t.TempDir(),
			LowWatermark:  uint64(lowPages * page),
			HighWatermark: uint64(highPages * page),
		},
		Invoker: p.funcs,
	})
	require.False(t, p.core.IsError())
	t.Cleanup(p.core.Shutdown)

	handler := p.funcs.RegisterEvent(func(_ uintptr, ev ufo.TimestampedEvent) {
		p.mu.Lock()
		p.events = append(p.events, ev)
		p.mu.Unlock()
	})
	require.True(t, p.core.SetEventHandler(0, handler))
	return p
}

// object creates an object of count uint64 elements loaded one page at a time.
func (p *pressure) object(t *testing.T, seed, count uint, wb boundary.FuncPtr) boundary.Object {
	t.Helper()
	obj := p.core.NewObject(&boundary.Parameters{
		ElementSize:  8,
		ElementCount: count,
		MinLoadCount: page / 8,
		PopulateData: uintptr(seed),
		PopulateFn:   p.seq,
		WritebackFn:  wb,
	})
	require.False(t, obj.IsError())
	return obj
}

func (p *pressure) read(t *testing.T, obj boundary.Object, i uint) uint64 {
	t.Helper()
	v, ok := p.load(obj, i)
	require.True(t, ok, "prefault element %d", i)
	return v
}

// load is read without test assertions, for use off the test goroutine.
func (p *pressure) load(obj boundary.Object, i uint) (uint64, bool) {
	body := obj.BodyPtr()
	if body == 0 {
		return 0, false
	}
	addr := body + uintptr(i*8)
	if !p.core.Prefault(addr) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(bytesAt(addr, 8)), true
}

func (p *pressure) write(t *testing.T, obj boundary.Object, i uint, v uint64) {
	t.Helper()
	addr := obj.BodyPtr() + uintptr(i*8)
	require.True(t, p.core.Prefault(addr), "prefault element %d", i)
	binary.LittleEndian.PutUint64(bytesAt(addr, 8), v)
}

func (p *pressure) count(kind ufo.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (p *pressure) peakMemory() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var peak uint64
	for _, ev := range p.events {
		peak = max(peak, ev.MemoryUsage)
	}
	return peak
}

func bytesAt(p uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}
