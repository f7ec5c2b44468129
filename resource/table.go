package resource

import "sync"

// Table is a token table over handles. It is safe for concurrent use.
type Table[T any] struct {
	slots    []slot[T]
	freeList []uint32
	mu       sync.RWMutex
}

type slot[T any] struct {
	handle *Handle[T]
	gen    uint32
	valid  bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		slots:    make([]slot[T], 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores h and returns its token. Null handles are not stored and
// yield token 0.
func (t *Table[T]) Insert(h *Handle[T]) Token {
	if h.IsNil() {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.freeList) > 0 {
		idx := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		s := &t.slots[idx]
		s.handle = h
		s.valid = true
		return makeToken(idx, s.gen)
	}

	t.slots = append(t.slots, slot[T]{handle: h, gen: 1, valid: true})
	return makeToken(uint32(len(t.slots)-1), 1)
}

// Get resolves a token.
func (t *Table[T]) Get(tok Token) (*Handle[T], bool) {
	idx, gen, ok := tok.split()
	if !ok {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(idx) >= len(t.slots) {
		return nil, false
	}
	s := t.slots[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}
	return s.handle, true
}

// Remove takes a handle out of the table without releasing it.
// The caller becomes responsible for releasing the returned handle.
func (t *Table[T]) Remove(tok Token) (*Handle[T], bool) {
	idx, gen, ok := tok.split()
	if !ok {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if int(idx) >= len(t.slots) {
		return nil, false
	}
	s := &t.slots[idx]
	if !s.valid || s.gen != gen {
		return nil, false
	}

	h := s.handle
	s.handle = nil
	s.valid = false
	s.gen++
	t.freeList = append(t.freeList, idx)
	return h, true
}

// Len returns the number of stored handles.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, s := range t.slots {
		if s.valid {
			count++
		}
	}
	return count
}

// Each iterates over stored handles until fn returns false.
// fn must not call back into the table.
func (t *Table[T]) Each(fn func(Token, *Handle[T]) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, s := range t.slots {
		if s.valid {
			if !fn(makeToken(uint32(i), s.gen), s.handle) {
				break
			}
		}
	}
}

