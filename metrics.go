package zireael

// Metrics is the engine's telemetry snapshot. The serialized layout is
// append-only: new fields go at the end so older readers keep working with
// a prefix copy.
type Metrics struct {
	FrameIndex          uint64
	BytesEmittedTotal   uint64
	BytesEmittedLast    uint32
	DirtyLinesLastFrame uint32
	DirtyCellsLastFrame uint32
	SpansLastFrame      uint32
	CollisionGuardHits  uint32
	ScrollOptAttempted  uint32
	ScrollOptHit        uint32
	SweepPathFrames     uint32
	DamagePathFrames    uint32
	EventsDropped       uint32
	SubmitErrors        uint32
	PresentErrors       uint32
}

// metricsWireSize is the full serialized size of the current layout.
const metricsWireSize = 8 + 8 + 12*4

// CopyPrefix serializes the snapshot little-endian and copies at most
// len(out) bytes of it, never writing past the caller's buffer. Returns
// the bytes copied.
func (m *Metrics) CopyPrefix(out []byte) int {
	var full [metricsWireSize]byte
	le.PutUint64(full[0:], m.FrameIndex)
	le.PutUint64(full[8:], m.BytesEmittedTotal)
	fields := [...]uint32{
		m.BytesEmittedLast, m.DirtyLinesLastFrame, m.DirtyCellsLastFrame,
		m.SpansLastFrame, m.CollisionGuardHits, m.ScrollOptAttempted,
		m.ScrollOptHit, m.SweepPathFrames, m.DamagePathFrames,
		m.EventsDropped, m.SubmitErrors, m.PresentErrors,
	}
	for i, f := range fields {
		le.PutUint32(full[16+i*4:], f)
	}
	n := len(out)
	if n > metricsWireSize {
		n = metricsWireSize
	}
	copy(out[:n], full[:n])
	return n
}
