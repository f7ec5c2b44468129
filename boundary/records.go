package boundary

import (
	"sync"
	"sync/atomic"

	ufo "github.com/ufo-org/ufo-r-operators"
	"github.com/ufo-org/ufo-r-operators/errors"
)

// recordTable maps object ids to the callback pointers the caller supplied.
// A fault while the write lock is held marks the table faulted for good.
type recordTable struct {
	mu      sync.RWMutex
	faulted atomic.Bool
	m       map[ufo.ObjectID]callbackRecord
}

func newRecordTable() *recordTable {
	return &recordTable{m: make(map[ufo.ObjectID]callbackRecord)}
}

func (t *recordTable) insert(id ufo.ObjectID, rec callbackRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer poisonOnPanic(func() { t.faulted.Store(true) })

	if t.faulted.Load() {
		return errors.Poisoned(errors.PhaseAllocate, "callback table")
	}
	t.m[id] = rec
	return nil
}

func (t *recordTable) get(id ufo.ObjectID) (callbackRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.faulted.Load() {
		return callbackRecord{}, errors.Poisoned(errors.PhaseLookup, "callback table")
	}
	rec, ok := t.m[id]
	if !ok {
		return callbackRecord{}, errors.New(errors.PhaseLookup, errors.KindNotFound).
			Object(uint64(id)).
			Detail("no callback record").
			Build()
	}
	return rec, nil
}

func (t *recordTable) remove(id ufo.ObjectID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer poisonOnPanic(func() { t.faulted.Store(true) })

	delete(t.m, id)
}

func (t *recordTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.m)
}

func (t *recordTable) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.m)
}
