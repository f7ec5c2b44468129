package ufo

import (
	"fmt"
	"time"
)

// ObjectID identifies a lazy object for the lifetime of its engine.
// IDs are never reused; ID 0 is never issued.
type ObjectID uint64

// EventKind identifies an engine event.
type EventKind uint8

const (
	EventAllocate EventKind = iota + 1
	EventPopulate
	EventUnload
	EventReset
	EventFree
	EventShutdown
)

var eventKindNames = map[EventKind]string{
	EventAllocate: "allocate",
	EventPopulate: "populate",
	EventUnload:   "unload",
	EventReset:    "reset",
	EventFree:     "free",
	EventShutdown: "shutdown",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// UnloadDisposition reports what happened to a chunk when it was evicted.
type UnloadDisposition uint8

const (
	DispositionNone UnloadDisposition = iota
	DispositionReadOnly
	DispositionClean
	DispositionWritten
)

// Event is emitted by the engine for every lifecycle step of a lazy object.
// Fields that do not apply to a kind are zero.
type Event struct {
	Object      ObjectID
	Address     uintptr // header address of the object
	StartIdx    uint64  // first element of the affected chunk
	EndIdx      uint64  // one past the last element of the affected chunk
	MemoryUsage uint64  // resident bytes when the event was emitted
	Kind        EventKind
	Disposition UnloadDisposition
}

// TimestampedEvent is an Event stamped with the time elapsed since the
// engine started.
type TimestampedEvent struct {
	Event
	Timestamp time.Duration
}

// WritebackKind identifies a writeback listener notification.
type WritebackKind uint8

const (
	// WritebackReset reports that the object was reset and all previously
	// written data is void.
	WritebackReset WritebackKind = iota + 1
	// WritebackChunk reports modified elements leaving memory.
	WritebackChunk
)

// WritebackEvent is delivered to an object's writeback listener.
// Data aliases engine memory and is only valid during the callback.
type WritebackEvent struct {
	Data     []byte
	StartIdx uint64
	EndIdx   uint64
	Kind     WritebackKind
}
