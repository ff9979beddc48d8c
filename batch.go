package zireael

// Event batch wire format: little-endian, 24-byte header, then records of
// a 16-byte header plus payload padded to a 4-byte boundary.
const (
	// EventBatchMagic is 'VERZ' on the wire.
	EventBatchMagic   uint32 = 0x5A524556
	EventBatchVersion uint32 = 1

	// BatchFlagTruncated is set when at least one record did not fit.
	BatchFlagTruncated uint32 = 1 << 0

	batchHeaderSize  = 24
	recordHeaderSize = 16
)

// BatchWriter packs events into a caller-provided buffer. A record that
// does not fit is never partially written: the writer reports failure,
// sets the TRUNCATED flag, and keeps every record written before it.
type BatchWriter struct {
	buf       []byte
	n         int
	count     uint32
	truncated bool
}

// BeginBatch starts a batch in buf. The buffer must hold at least the
// header.
func BeginBatch(buf []byte) (*BatchWriter, error) {
	if len(buf) < batchHeaderSize {
		return nil, ErrLimit
	}
	w := &BatchWriter{buf: buf, n: batchHeaderSize}
	le.PutUint32(buf[0:], EventBatchMagic)
	le.PutUint32(buf[4:], EventBatchVersion)
	le.PutUint32(buf[8:], 0)  // total_size, patched in Finish
	le.PutUint32(buf[12:], 0) // event_count, patched in Finish
	le.PutUint32(buf[16:], 0) // flags
	le.PutUint32(buf[20:], 0) // reserved0
	return w, nil
}

// AppendRecord writes one record with a raw payload. Returns false and
// sets the TRUNCATED flag when the record does not fit; nothing is
// written in that case.
func (w *BatchWriter) AppendRecord(typ EventType, timeMS, flags uint32, payload []byte) bool {
	need := recordHeaderSize + pad4(len(payload))
	if w.n+need > len(w.buf) {
		w.truncated = true
		return false
	}
	le.PutUint32(w.buf[w.n:], uint32(typ))
	le.PutUint32(w.buf[w.n+4:], uint32(len(payload)))
	le.PutUint32(w.buf[w.n+8:], timeMS)
	le.PutUint32(w.buf[w.n+12:], flags)
	copy(w.buf[w.n+recordHeaderSize:], payload)
	for i := w.n + recordHeaderSize + len(payload); i < w.n+need; i++ {
		w.buf[i] = 0
	}
	w.n += need
	w.count++
	return true
}

// AppendEvent marshals an event record using the pinned payload layout for
// its type. extra carries the variable bytes for PASTE and USER events.
func (w *BatchWriter) AppendEvent(ev Event, extra []byte) bool {
	var scratch [28]byte
	var payload []byte
	switch ev.Type {
	case EventKey:
		le.PutUint32(scratch[0:], uint32(ev.Key))
		le.PutUint32(scratch[4:], ev.Mods)
		le.PutUint32(scratch[8:], ev.Action)
		le.PutUint32(scratch[12:], 0)
		payload = scratch[:16]
	case EventText:
		le.PutUint32(scratch[0:], uint32(ev.Codepoint))
		payload = scratch[:4]
	case EventMouse:
		le.PutUint32(scratch[0:], uint32(ev.X))
		le.PutUint32(scratch[4:], uint32(ev.Y))
		le.PutUint32(scratch[8:], uint32(ev.MouseKind))
		le.PutUint32(scratch[12:], ev.Buttons)
		le.PutUint32(scratch[16:], ev.Mods)
		le.PutUint32(scratch[20:], uint32(ev.WheelX))
		le.PutUint32(scratch[24:], uint32(ev.WheelY))
		payload = scratch[:28]
	case EventResize:
		le.PutUint32(scratch[0:], ev.Cols)
		le.PutUint32(scratch[4:], ev.Rows)
		payload = scratch[:8]
	case EventFocus:
		g := uint32(0)
		if ev.FocusGained {
			g = 1
		}
		le.PutUint32(scratch[0:], g)
		payload = scratch[:4]
	case EventPaste:
		need := 4 + len(extra)
		buf := make([]byte, need)
		le.PutUint32(buf[0:], uint32(len(extra)))
		copy(buf[4:], extra)
		payload = buf
	case EventUser:
		need := 8 + len(extra)
		buf := make([]byte, need)
		le.PutUint32(buf[0:], ev.Tag)
		le.PutUint32(buf[4:], uint32(len(extra)))
		copy(buf[8:], extra)
		payload = buf
	case EventTick:
		le.PutUint32(scratch[0:], ev.DtMS)
		payload = scratch[:4]
	default:
		return false
	}
	return w.AppendRecord(ev.Type, ev.TimeMS, 0, payload)
}

// Truncated reports whether any record failed to fit so far.
func (w *BatchWriter) Truncated() bool { return w.truncated }

// Finish patches the header and returns the total batch size.
func (w *BatchWriter) Finish() int {
	le.PutUint32(w.buf[8:], uint32(w.n))
	le.PutUint32(w.buf[12:], w.count)
	flags := uint32(0)
	if w.truncated {
		flags |= BatchFlagTruncated
	}
	le.PutUint32(w.buf[16:], flags)
	return w.n
}

// DecodedRecord is one record read back from a packed batch.
type DecodedRecord struct {
	Event   Event
	Flags   uint32
	Payload []byte
}

// DecodeEventBatch parses a packed batch. Payload slices alias buf.
func DecodeEventBatch(buf []byte) (records []DecodedRecord, truncated bool, err error) {
	if len(buf) < batchHeaderSize {
		return nil, false, ErrFormat
	}
	if le.Uint32(buf[0:]) != EventBatchMagic {
		return nil, false, ErrFormat
	}
	if le.Uint32(buf[4:]) != EventBatchVersion {
		return nil, false, ErrUnsupported
	}
	total := le.Uint32(buf[8:])
	count := le.Uint32(buf[12:])
	flags := le.Uint32(buf[16:])
	if uint64(total) > uint64(len(buf)) || total < batchHeaderSize {
		return nil, false, ErrFormat
	}
	truncated = flags&BatchFlagTruncated != 0

	off := batchHeaderSize
	for i := uint32(0); i < count; i++ {
		if off+recordHeaderSize > int(total) {
			return nil, false, ErrFormat
		}
		typ := EventType(le.Uint32(buf[off:]))
		payloadSize := int(le.Uint32(buf[off+4:]))
		timeMS := le.Uint32(buf[off+8:])
		recFlags := le.Uint32(buf[off+12:])
		body := off + recordHeaderSize
		if body+pad4(payloadSize) > int(total) {
			return nil, false, ErrFormat
		}
		payload := buf[body : body+payloadSize]
		rec := DecodedRecord{Flags: recFlags}
		rec.Event.Type = typ
		rec.Event.TimeMS = timeMS
		if err := decodeRecordPayload(&rec, typ, payload); err != nil {
			return nil, false, err
		}
		records = append(records, rec)
		off = body + pad4(payloadSize)
	}
	return records, truncated, nil
}

func decodeRecordPayload(rec *DecodedRecord, typ EventType, payload []byte) error {
	short := func(n int) bool { return len(payload) < n }
	switch typ {
	case EventKey:
		if short(16) {
			return ErrFormat
		}
		rec.Event.Key = Key(le.Uint32(payload[0:]))
		rec.Event.Mods = le.Uint32(payload[4:])
		rec.Event.Action = le.Uint32(payload[8:])
	case EventText:
		if short(4) {
			return ErrFormat
		}
		rec.Event.Codepoint = rune(le.Uint32(payload[0:]))
	case EventMouse:
		if short(28) {
			return ErrFormat
		}
		rec.Event.X = int32(le.Uint32(payload[0:]))
		rec.Event.Y = int32(le.Uint32(payload[4:]))
		rec.Event.MouseKind = MouseKind(le.Uint32(payload[8:]))
		rec.Event.Buttons = le.Uint32(payload[12:])
		rec.Event.Mods = le.Uint32(payload[16:])
		rec.Event.WheelX = int32(le.Uint32(payload[20:]))
		rec.Event.WheelY = int32(le.Uint32(payload[24:]))
	case EventResize:
		if short(8) {
			return ErrFormat
		}
		rec.Event.Cols = le.Uint32(payload[0:])
		rec.Event.Rows = le.Uint32(payload[4:])
	case EventFocus:
		if short(4) {
			return ErrFormat
		}
		rec.Event.FocusGained = le.Uint32(payload[0:]) != 0
	case EventPaste:
		if short(4) {
			return ErrFormat
		}
		n := int(le.Uint32(payload[0:]))
		if len(payload) < 4+n {
			return ErrFormat
		}
		rec.Payload = payload[4 : 4+n]
	case EventUser:
		if short(8) {
			return ErrFormat
		}
		rec.Event.Tag = le.Uint32(payload[0:])
		n := int(le.Uint32(payload[4:]))
		if len(payload) < 8+n {
			return ErrFormat
		}
		rec.Payload = payload[8 : 8+n]
	case EventTick:
		if short(4) {
			return ErrFormat
		}
		rec.Event.DtMS = le.Uint32(payload[0:])
	default:
		return ErrUnsupported
	}
	return nil
}
