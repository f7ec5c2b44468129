package resource

import (
	"sync"
	"testing"
)

func TestTable_Basic(t *testing.T) {
	table := NewTable[string]()

	tok := table.Insert(Wrap("test"))
	if tok == 0 {
		t.Fatal("Expected non-zero token")
	}

	h, ok := table.Get(tok)
	if !ok {
		t.Fatal("Get failed")
	}
	if *h.Get() != "test" {
		t.Fatalf("Expected 'test', got %v", *h.Get())
	}

	removed, ok := table.Remove(tok)
	if !ok {
		t.Fatal("Remove failed")
	}
	if removed != h {
		t.Fatal("Remove returned a different handle")
	}
	if removed.IsNil() {
		t.Fatal("Remove must not release the handle")
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_NullHandleRejected(t *testing.T) {
	table := NewTable[int]()

	if tok := table.Insert(None[int]()); tok != 0 {
		t.Fatalf("Insert of null handle returned token %d", tok)
	}
	if tok := table.Insert(nil); tok != 0 {
		t.Fatalf("Insert of nil handle returned token %d", tok)
	}
}

func TestTable_StaleToken(t *testing.T) {
	table := NewTable[int]()

	old := table.Insert(Wrap(1))
	table.Remove(old)

	reused := table.Insert(Wrap(2))
	if reused == old {
		t.Fatal("Reused slot must carry a new generation")
	}

	if _, ok := table.Get(old); ok {
		t.Fatal("Stale token must not resolve")
	}
	if _, ok := table.Remove(old); ok {
		t.Fatal("Stale token must not remove the new occupant")
	}

	h, ok := table.Get(reused)
	if !ok || *h.Get() != 2 {
		t.Fatal("New token should resolve to the new handle")
	}
}

func TestTable_DoubleRemove(t *testing.T) {
	table := NewTable[int]()

	tok := table.Insert(Wrap(1))
	if _, ok := table.Remove(tok); !ok {
		t.Fatal("first Remove should succeed")
	}
	if _, ok := table.Remove(tok); ok {
		t.Fatal("second Remove should fail")
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable[int]()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			tok := table.Insert(Wrap(id))
			h, ok := table.Get(tok)
			if !ok || *h.Get() != id {
				t.Errorf("token %d resolved to wrong handle", tok)
			}
			table.Remove(tok)
		}(i)
	}

	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("Expected empty table, got %d", table.Len())
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable[string]()

	table.Insert(Wrap("a"))
	table.Insert(Wrap("b"))
	table.Insert(Wrap("c"))

	count := 0
	table.Each(func(tok Token, h *Handle[string]) bool {
		if got, ok := table.slotFor(tok); !ok || got != h {
			t.Errorf("Each yielded token %d that does not resolve", tok)
		}
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	table.Each(func(Token, *Handle[string]) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

// slotFor resolves a token without taking the lock; Each already holds it.
func (t *Table[T]) slotFor(tok Token) (*Handle[T], bool) {
	idx, gen, ok := tok.split()
	if !ok || int(idx) >= len(t.slots) {
		return nil, false
	}
	s := t.slots[idx]
	return s.handle, s.valid && s.gen == gen
}

func TestTable_InvalidToken(t *testing.T) {
	table := NewTable[int]()

	if _, ok := table.Get(0); ok {
		t.Fatal("Token 0 should be invalid")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("Token 0 should fail Remove")
	}
	if _, ok := table.Get(999); ok {
		t.Fatal("Non-existent token should be invalid")
	}
}
