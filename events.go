package zireael

import "sync"

// EventType tags an event record. Values are stable: they are the record
// type in the packed event batch.
type EventType uint32

const (
	EventKey EventType = iota + 1
	EventText
	EventMouse
	EventResize
	EventFocus
	EventPaste
	EventUser
	EventTick
)

// Event is one fixed-layout event record. Variable-length payloads (paste
// and user bytes) live in the queue's byte ring, referenced by offset.
type Event struct {
	Type   EventType
	TimeMS uint32

	// Key
	Key    Key
	Mods   uint32
	Action uint32

	// Text
	Codepoint rune

	// Mouse
	X, Y      int32
	MouseKind MouseKind
	Buttons   uint32
	WheelX    int32
	WheelY    int32

	// Resize
	Cols uint32
	Rows uint32

	// Focus
	FocusGained bool

	// User
	Tag uint32

	// Tick
	DtMS uint32

	payloadOff uint32
	payloadLen uint32
	payloadPad uint32
}

// EventQueue is a bounded ring of event records plus a byte ring for
// variable-length payloads. Coalescible events (resize, mouse move)
// replace their pending instance even when the queue is full; other events
// drop the oldest record (freeing its payload) when full.
//
// PostUser and PostPaste may be called from any goroutine; everything else
// belongs to the owner thread. The mutex keeps both rings consistent.
type EventQueue struct {
	mu     sync.Mutex
	events []Event
	head   int
	count  int

	bytes    []byte
	byteHead int
	byteUsed int

	droppedFull uint32
	wake        func()
}

// NewEventQueue creates a queue with capEvents records and capBytes of
// payload storage.
func NewEventQueue(capEvents, capBytes int) (*EventQueue, error) {
	if capEvents <= 0 || capBytes <= 0 {
		return nil, ErrInvalidArgument
	}
	return &EventQueue{
		events: make([]Event, capEvents),
		bytes:  make([]byte, capBytes),
	}, nil
}

// SetWake installs the platform wake hook invoked after cross-thread posts.
func (q *EventQueue) SetWake(wake func()) {
	q.mu.Lock()
	q.wake = wake
	q.mu.Unlock()
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many events were discarded because the queue was
// full.
func (q *EventQueue) Dropped() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.droppedFull
}

// UserUsed returns the live payload bytes, including pad-to-wrap waste.
func (q *EventQueue) UserUsed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.byteUsed
}

func (q *EventQueue) at(i int) *Event {
	return &q.events[(q.head+i)%len(q.events)]
}

// coalescible reports whether ev replaces a pending event of the same
// shape instead of enqueueing.
func coalescible(ev *Event) bool {
	return ev.Type == EventResize ||
		(ev.Type == EventMouse && ev.MouseKind == MouseMove)
}

// Push enqueues an event. Resize and mouse-move coalesce last-wins with a
// pending event of the same kind even when the queue is full; other events
// drop the oldest when full and bump the dropped counter.
func (q *EventQueue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.push(ev)
}

func (q *EventQueue) push(ev Event) {
	if coalescible(&ev) {
		for i := 0; i < q.count; i++ {
			e := q.at(i)
			if e.Type == ev.Type && (ev.Type != EventMouse || e.MouseKind == MouseMove) {
				*e = ev
				return
			}
		}
	}
	if q.count == len(q.events) {
		q.dropOldest()
	}
	*q.at(q.count) = ev
	q.count++
}

func (q *EventQueue) dropOldest() {
	if q.count == 0 {
		return
	}
	e := q.at(0)
	q.freePayload(e)
	q.head = (q.head + 1) % len(q.events)
	q.count--
	q.droppedFull++
}

func (q *EventQueue) freePayload(e *Event) {
	total := int(e.payloadPad + e.payloadLen)
	if total == 0 {
		return
	}
	q.byteHead = (q.byteHead + total) % len(q.bytes)
	q.byteUsed -= total
}

// allocPayload reserves n contiguous bytes in the byte ring, padding past
// the wrap point when needed. The pad is freed with the record that owns
// it.
func (q *EventQueue) allocPayload(n int) (off, pad int, ok bool) {
	capB := len(q.bytes)
	if n > capB-q.byteUsed {
		return 0, 0, false
	}
	tail := (q.byteHead + q.byteUsed) % capB
	if tail+n <= capB {
		return tail, 0, true
	}
	pad = capB - tail
	if n+pad > capB-q.byteUsed {
		return 0, 0, false
	}
	return 0, pad, true
}

// PostPaste enqueues a PASTE event copying the payload into the byte ring.
// Paste never evicts live events: if the payload or the record does not
// fit, it fails with ErrLimit.
func (q *EventQueue) PostPaste(payload []byte) error {
	return q.PostPasteAt(payload, 0)
}

// PostPasteAt is PostPaste with an explicit timestamp.
func (q *EventQueue) PostPasteAt(payload []byte, timeMS uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.events) {
		return ErrLimit
	}
	off, pad, ok := q.allocPayload(len(payload))
	if !ok {
		return ErrLimit
	}
	copy(q.bytes[off:], payload)
	q.byteUsed += pad + len(payload)
	q.push(Event{
		Type:       EventPaste,
		TimeMS:     timeMS,
		payloadOff: uint32(off),
		payloadLen: uint32(len(payload)),
		payloadPad: uint32(pad),
	})
	if q.wake != nil {
		q.wake()
	}
	return nil
}

// PostUser enqueues a USER event with a tag and payload. It may be called
// from any thread; the platform wake hook fires so a blocked poll returns.
// When the byte ring is full, user posts evict the oldest events until the
// payload fits; an empty queue that still cannot fit fails with ErrLimit.
func (q *EventQueue) PostUser(tag uint32, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(payload) > len(q.bytes) {
		return ErrLimit
	}
	var off, pad int
	for {
		var ok bool
		off, pad, ok = q.allocPayload(len(payload))
		if ok {
			break
		}
		if q.count == 0 {
			return ErrLimit
		}
		q.dropOldest()
	}
	copy(q.bytes[off:], payload)
	q.byteUsed += pad + len(payload)
	q.push(Event{
		Type:       EventUser,
		Tag:        tag,
		payloadOff: uint32(off),
		payloadLen: uint32(len(payload)),
		payloadPad: uint32(pad),
	})
	if q.wake != nil {
		q.wake()
	}
	return nil
}

// Peek returns a copy of the head event without consuming it.
func (q *EventQueue) Peek() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Event{}, false
	}
	return *q.at(0), true
}

// Pop consumes the head event, returning it along with its payload bytes.
// The payload slice is only valid until the next queue operation; copy it
// before unlocking stretches of work.
func (q *EventQueue) Pop() (Event, []byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Event{}, nil, false
	}
	e := *q.at(0)
	var payload []byte
	if e.payloadLen > 0 {
		payload = q.bytes[e.payloadOff : e.payloadOff+e.payloadLen]
	}
	q.freePayload(q.at(0))
	q.head = (q.head + 1) % len(q.events)
	q.count--
	return e, payload, true
}

// DrainTo pops events in order while fn accepts them. fn receives each
// event and its payload view; returning false leaves the event queued for
// the next drain.
func (q *EventQueue) DrainTo(fn func(Event, []byte) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count > 0 {
		e := q.at(0)
		var payload []byte
		if e.payloadLen > 0 {
			payload = q.bytes[e.payloadOff : e.payloadOff+e.payloadLen]
		}
		if !fn(*e, payload) {
			return
		}
		q.freePayload(e)
		q.head = (q.head + 1) % len(q.events)
		q.count--
	}
}
