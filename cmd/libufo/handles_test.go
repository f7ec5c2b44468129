//go:build cgo

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-org/ufo-r-operators/boundary"
)

func TestHandles_CoreOwnsObjects(t *testing.T) {
	fill := boundary.Funcs().RegisterPopulate(func(uintptr, uintptr, uintptr, uintptr) int32 { return 0 })
	defer boundary.Funcs().Unregister(fill)

	tok := insertCore(boundary.NewCore(t.TempDir(), 1<<20, 2<<20))
	require.NotZero(t, tok)
	core := lookupCore(tok)
	require.False(t, core.IsError())

	obj := core.NewObject(&boundary.Parameters{ElementSize: 8, ElementCount: 10, PopulateFn: fill})
	first := insertObject(obj, tok)
	second := insertObject(core.ObjectByAddress(obj.BodyPtr()), tok)
	require.NotZero(t, first)
	require.NotEqual(t, first, second)
	assert.True(t, lookupObject(second).Same(obj))

	removeCore(tok).Shutdown()

	assert.True(t, lookupCore(tok).IsError())
	assert.True(t, lookupObject(first).IsError())
	assert.True(t, lookupObject(second).IsError())
	assert.True(t, removeCore(tok).IsError(), "second shutdown is a no-op")
}

func TestHandles_NullInputs(t *testing.T) {
	assert.Zero(t, insertCore(boundary.Core{}))
	assert.Zero(t, insertObject(boundary.Object{}, 1))
	assert.True(t, lookupCore(0).IsError())
	assert.True(t, lookupObject(12345).IsError())
	assert.True(t, removeObject(0).IsError())
}
