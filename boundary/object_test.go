package boundary

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	ufo "github.com/ufo-org/ufo-r-operators"
)

func TestObject_Layout(t *testing.T) {
	f := newFixture(t)

	obj := f.core.NewObject(f.params(64, 1000))
	require.False(t, obj.IsError())

	a := obj.HeaderPtr()
	require.NotZero(t, a)
	assert.Equal(t, a+64, obj.BodyPtr())
	assert.Zero(t, uint64(obj.BodyPtr())%uint64(os.Getpagesize()))

	last := a + 64 + 1000*8 - 1
	assert.True(t, f.core.IsObjectAddress(a))
	assert.True(t, f.core.IsObjectAddress(last))
	assert.False(t, f.core.IsObjectAddress(last+1))
	assert.False(t, f.core.IsObjectAddress(a-1))
}

func TestObject_Populate(t *testing.T) {
	f := newFixture(t)

	obj := f.core.NewObject(f.params(0, 1000))
	require.False(t, obj.IsError())
	body := obj.BodyPtr()

	require.True(t, f.core.Prefault(body+500*8))
	assert.Equal(t, uint64(500), elementAt(body, 500))
	assert.Equal(t, uint64(999), elementAt(body, 999))
	assert.Equal(t, int64(1), f.fills.Load())
}

func TestObject_Reset(t *testing.T) {
	f := newFixture(t)

	var resets int
	wb := f.funcs.RegisterWriteback(func(_ uintptr, ev ufo.WritebackEvent) {
		if ev.Kind == ufo.WritebackReset {
			resets++
		}
	})
	p := f.params(8, 100)
	p.WritebackFn = wb
	obj := f.core.NewObject(p)
	require.False(t, obj.IsError())
	body := obj.BodyPtr()

	require.True(t, f.core.Prefault(body))
	bytesAt(body, 8)[0] = 0xff
	copy(bytesAt(obj.HeaderPtr(), 8), "header!!")

	require.Equal(t, int32(0), obj.Reset())
	assert.Equal(t, 1, resets)
	assert.Equal(t, "header!!", string(bytesAt(obj.HeaderPtr(), 8)))

	require.True(t, f.core.Prefault(body))
	assert.Equal(t, uint64(0), elementAt(body, 0))
	assert.Equal(t, int64(2), f.fills.Load())
}

func TestObject_UseAfterFree(t *testing.T) {
	f := newFixture(t)

	obj := f.core.NewObject(f.params(64, 1000))
	require.False(t, obj.IsError())
	alias := f.core.ObjectByAddress(obj.BodyPtr())
	require.True(t, alias.Same(obj))
	body := obj.BodyPtr()
	require.Equal(t, 1, f.core.Len())

	obj.Free()

	assert.True(t, obj.IsError())
	assert.Equal(t, int32(-1), obj.Reset())
	assert.Zero(t, obj.HeaderPtr())
	assert.Zero(t, obj.BodyPtr())
	assert.Zero(t, obj.ID())
	obj.Free()

	assert.False(t, alias.IsError(), "other handles stay non-null")
	assert.Equal(t, int32(-1), alias.Reset())
	assert.Zero(t, alias.BodyPtr())
	var out Parameters
	assert.Equal(t, StatusNotFound, f.core.Params(alias, &out))
	alias.Free()
	assert.True(t, alias.IsError())

	assert.False(t, f.core.IsObjectAddress(body))
	assert.False(t, f.core.Prefault(body))
	assert.Equal(t, 0, f.core.Len(), "record removed on free")
}

func TestObject_NullHandle(t *testing.T) {
	var o Object

	assert.True(t, o.IsError())
	assert.Equal(t, int32(-1), o.Reset())
	assert.Zero(t, o.HeaderPtr())
	assert.Zero(t, o.BodyPtr())
	assert.Zero(t, o.ID())
	assert.False(t, o.Same(Object{}))
	o.Free()
}

func TestObject_NullHandleIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(nil) })

	var o Object
	assert.Zero(t, o.HeaderPtr())

	entries := logs.FilterMessage("boundary call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "header_ptr", entries[0].ContextMap()["op"])
	assert.Contains(t, entries[0].ContextMap()["error"], "nil_handle")
}

func TestObject_PoisonedAfterFault(t *testing.T) {
	f := newFixture(t)

	obj := f.core.NewObject(f.params(0, 10))
	require.False(t, obj.IsError())

	got := locked(obj, "explode", 7, func(*objectRef) (int, error) {
		panic("fault inside critical section")
	})
	assert.Equal(t, 7, got)

	assert.Zero(t, obj.HeaderPtr())
	assert.Equal(t, int32(-1), obj.Reset())
	var out Parameters
	assert.Equal(t, StatusFault, f.core.Params(obj, &out))

	obj.Free()
	assert.False(t, obj.IsError(), "free refuses a poisoned object")
	assert.Equal(t, 1, f.core.Len())
}
