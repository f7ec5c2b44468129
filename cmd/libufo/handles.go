//go:build cgo

package main

import (
	"github.com/ufo-org/ufo-r-operators/boundary"
	"github.com/ufo-org/ufo-r-operators/resource"
)

var (
	cores   = resource.NewTable[boundary.Core]()
	objects = resource.NewTable[objectEntry]()
)

type objectEntry struct {
	obj  boundary.Object
	core resource.Token
}

func insertCore(c boundary.Core) resource.Token {
	if c.IsError() {
		return 0
	}
	return cores.Insert(resource.Wrap(c))
}

func lookupCore(tok resource.Token) boundary.Core {
	if h, ok := cores.Get(tok); ok {
		if c := h.Get(); c != nil {
			return *c
		}
	}
	return boundary.Core{}
}

// removeCore takes the core and every object handle issued under it out of
// the tables.
func removeCore(tok resource.Token) boundary.Core {
	h, ok := cores.Remove(tok)
	if !ok {
		return boundary.Core{}
	}

	var owned []resource.Token
	objects.Each(func(t resource.Token, oh *resource.Handle[objectEntry]) bool {
		if e := oh.Get(); e != nil && e.core == tok {
			owned = append(owned, t)
		}
		return true
	})
	for _, t := range owned {
		if oh, ok := objects.Remove(t); ok {
			oh.Release()
		}
	}

	c, _ := h.Release()
	if c == nil {
		return boundary.Core{}
	}
	return *c
}

func insertObject(o boundary.Object, core resource.Token) resource.Token {
	if o.IsError() {
		return 0
	}
	return objects.Insert(resource.Wrap(objectEntry{obj: o, core: core}))
}

func lookupObject(tok resource.Token) boundary.Object {
	if h, ok := objects.Get(tok); ok {
		if e := h.Get(); e != nil {
			return e.obj
		}
	}
	return boundary.Object{}
}

func removeObject(tok resource.Token) boundary.Object {
	h, ok := objects.Remove(tok)
	if !ok {
		return boundary.Object{}
	}
	e, _ := h.Release()
	if e == nil {
		return boundary.Object{}
	}
	return e.obj
}
