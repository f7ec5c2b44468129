package engine

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// dispatcher delivers events to the engine-wide listener. Deliveries run
// without mu held, so a listener may call back into the engine, including
// set.
type dispatcher struct {
	mu       sync.Mutex
	idle     sync.Cond
	listener EventListener
	active   map[uint64]int // goroutine -> deliveries in progress
	setting  map[uint64]int // goroutine -> calls to set in progress
}

func (d *dispatcher) init() {
	d.idle.L = &d.mu
	d.active = make(map[uint64]int)
	d.setting = make(map[uint64]int)
}

// deliver calls fn with the current listener, if any.
func (d *dispatcher) deliver(fn func(EventListener)) {
	d.mu.Lock()
	l := d.listener
	if l == nil {
		d.mu.Unlock()
		return
	}
	g := goid()
	d.active[g]++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.active[g]--; d.active[g] == 0 {
			delete(d.active, g)
		}
		d.idle.Broadcast()
		d.mu.Unlock()
	}()
	fn(l)
}

// set installs l and waits until no other goroutine is delivering.
// Deliveries on the calling goroutine, and on goroutines that are
// themselves inside set, are already running and are not waited for.
func (d *dispatcher) set(l EventListener) {
	g := goid()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.listener = l
	d.setting[g]++
	for d.busy(g) {
		d.idle.Wait()
	}
	if d.setting[g]--; d.setting[g] == 0 {
		delete(d.setting, g)
	}
	d.idle.Broadcast()
}

func (d *dispatcher) busy(self uint64) bool {
	for g := range d.active {
		if g != self && d.setting[g] == 0 {
			return true
		}
	}
	return false
}

// goid returns the calling goroutine's id, parsed from its stack header
// ("goroutine 42 [running]:").
func goid() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
