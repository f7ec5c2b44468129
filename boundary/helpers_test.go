package boundary

import (
	"encoding/binary"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ufo-org/ufo-r-operators/engine"
)

const mib = 1 << 20

type fixture struct {
	core  Core
	funcs *FuncTable
	fill  FuncPtr
	fills atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	SetLogger(zaptest.NewLogger(t))
	t.Cleanup(func() { SetLogger(nil) })

	f := &fixture{funcs: NewFuncTable()}
	f.fill = f.funcs.RegisterPopulate(func(_, start, end, dst uintptr) int32 {
		f.fills.Add(1)
		buf := bytesAt(dst, int(end-start)*8)
		for i := start; i < end; i++ {
			binary.LittleEndian.PutUint64(buf[(i-start)*8:], uint64(i))
		}
		return 0
	})

	f.core = NewCoreWithConfig(&Config{
		Engine:  engine.Config{WritebackPath: t.TempDir(), LowWatermark: 16 * mib, HighWatermark: 64 * mib},
		Invoker: f.funcs,
	})
	require.False(t, f.core.IsError())
	t.Cleanup(f.core.Shutdown)
	return f
}

func (f *fixture) params(headerSize, count uint) *Parameters {
	return &Parameters{
		HeaderSize:   headerSize,
		ElementSize:  8,
		ElementCount: count,
		PopulateFn:   f.fill,
	}
}

func bytesAt(p uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), n)
}

func elementAt(body uintptr, i uint) uint64 {
	return binary.LittleEndian.Uint64(bytesAt(body+uintptr(i*8), 8))
}
