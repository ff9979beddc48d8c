package zireael

import "fmt"

// EngineConfig parameterizes engine creation.
type EngineConfig struct {
	Limits      Limits
	TabWidth    int
	WidthPolicy WidthPolicy
	TargetFPS   int
	// EnableScrollOpt allows the diff renderer's scroll-region hotpath.
	EnableScrollOpt bool
	// WaitForOutputDrain blocks present until the output descriptor is
	// writable. Rejected at creation when the port lacks the capability.
	WaitForOutputDrain bool
	// InstallRestoreHooks registers the engine in the process-wide restore
	// registry walked on interrupt signals.
	InstallRestoreHooks bool
	// Profile overrides the detected terminal profile when non-nil.
	Profile *TerminalProfile
}

// DefaultEngineConfig returns the pinned defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Limits:          DefaultLimits(),
		TabWidth:        4,
		WidthPolicy:     WidthEmojiWide,
		TargetFPS:       60,
		EnableScrollOpt: true,
	}
}

// Engine owns the frame pipeline: the previous and next framebuffers, the
// terminal-state shadow, the arenas, the event queue, and the persistent
// drawlist resource tables. All methods except the queue's cross-thread
// posts are owner-thread only.
type Engine struct {
	plat    Platform
	cfg     EngineConfig
	caps    PlatformCaps
	profile TerminalProfile

	prev   *Framebuffer
	next   *Framebuffer
	shadow TermState
	cursor CursorState

	persist *Arena
	frame   *Arena
	scratch *Scratch

	queue     *EventQueue
	resources *ResourceTables
	parser    InputParser

	damage      DamageTracker
	damageStore []Rect
	outBuf      []byte
	inBuf       []byte
	inTail      []byte

	metrics    Metrics
	lastTickMS uint64
	closed     bool
}

// NewEngine creates an engine over the platform port: validates the
// configuration, enters raw mode, sizes the framebuffers from the
// terminal, and clears the terminal-state shadow so the first present
// emits an absolute baseline.
func NewEngine(plat Platform, cfg EngineConfig) (*Engine, error) {
	if plat == nil {
		return nil, ErrInvalidArgument
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.TabWidth <= 0 || cfg.TargetFPS <= 0 {
		return nil, ErrInvalidArgument
	}
	caps := plat.Caps()
	if cfg.WaitForOutputDrain && !caps.SupportsOutputWaitWritable {
		return nil, ErrUnsupported
	}

	if err := plat.EnterRaw(); err != nil {
		return nil, fmt.Errorf("%w: enter raw: %v", ErrPlatform, err)
	}
	cols, rows, err := plat.Size()
	if err != nil {
		_ = plat.LeaveRaw()
		return nil, fmt.Errorf("%w: size: %v", ErrPlatform, err)
	}

	e := &Engine{plat: plat, cfg: cfg, caps: caps}
	if cfg.Profile != nil {
		e.profile = *cfg.Profile
	} else {
		e.profile = DefaultProfile()
	}
	if e.prev, err = NewFramebuffer(cols, rows); err != nil {
		_ = plat.LeaveRaw()
		return nil, err
	}
	if e.next, err = NewFramebuffer(cols, rows); err != nil {
		_ = plat.LeaveRaw()
		return nil, err
	}
	if e.persist, err = NewArena(int(cfg.Limits.ArenaInitialBytes), int(cfg.Limits.ArenaMaxTotalBytes)); err != nil {
		_ = plat.LeaveRaw()
		return nil, err
	}
	if e.frame, err = NewArena(int(cfg.Limits.ArenaInitialBytes), int(cfg.Limits.ArenaMaxTotalBytes)); err != nil {
		_ = plat.LeaveRaw()
		return nil, err
	}
	if e.queue, err = NewEventQueue(int(cfg.Limits.EventQueueCap), int(cfg.Limits.EventBytesCap)); err != nil {
		_ = plat.LeaveRaw()
		return nil, err
	}
	e.queue.SetWake(plat.Wake)
	e.scratch = NewScratch()
	e.resources = NewResourceTables()
	e.damageStore = make([]Rect, 0, cfg.Limits.DiffMaxDamageRects)
	e.damage.BeginFrame(e.damageStore, cols, rows)
	e.outBuf = make([]byte, 0, cfg.Limits.OutMaxBytesPerFrame)
	e.inBuf = make([]byte, 4096)
	e.cursor = CursorState{Visible: true}
	e.shadow.Invalidate()
	e.lastTickMS = plat.NowMS()

	if cfg.InstallRestoreHooks {
		registerEngineForRestore(e)
	}
	return e, nil
}

// Caps returns the platform capabilities in effect.
func (e *Engine) Caps() PlatformCaps { return e.caps }

// TerminalProfile returns the terminal profile in effect.
func (e *Engine) TerminalProfile() TerminalProfile { return e.profile }

// Queue exposes the event queue for cross-thread PostUser/PostPaste.
func (e *Engine) Queue() *EventQueue { return e.queue }

// Size returns the current framebuffer dimensions.
func (e *Engine) Size() (cols, rows int) { return e.next.cols, e.next.rows }

// SubmitDrawlist validates bytes and executes them into the next-frame
// framebuffer. Submission is atomic: on any failure the framebuffer, the
// cursor, and the resource tables are exactly as they were before the
// call.
func (e *Engine) SubmitDrawlist(b []byte) error {
	if e.closed {
		return ErrInvalidArgument
	}
	view, err := ValidateDrawlist(b, &e.cfg.Limits)
	if err != nil {
		e.metrics.SubmitErrors++
		return err
	}
	snap := e.resources.Snapshot()
	cursorSnap := e.cursor
	env := &ExecEnv{
		FB:        e.next,
		Limits:    &e.cfg.Limits,
		TabWidth:  e.cfg.TabWidth,
		Policy:    e.cfg.WidthPolicy,
		Caps:      e.caps,
		Profile:   &e.profile,
		Staging:   e.frame,
		Resources: e.resources,
		Cursor:    &e.cursor,
		Damage:    &e.damage,
	}
	if err := ExecuteDrawlist(view, env); err != nil {
		e.resources.Restore(snap)
		e.cursor = cursorSnap
		e.metrics.SubmitErrors++
		return err
	}
	return nil
}

// Present diffs the previous frame against the next one and flushes the
// resulting byte stream to the platform port in exactly one write. On
// overflow of the per-frame output buffer it returns ErrLimit without
// writing anything; the caller may simplify the frame and retry.
func (e *Engine) Present() error {
	if e.closed {
		return ErrInvalidArgument
	}
	if e.cfg.WaitForOutputDrain {
		if err := e.plat.WaitOutputWritable(-1); err != nil {
			e.metrics.PresentErrors++
			return fmt.Errorf("%w: wait writable: %v", ErrPlatform, err)
		}
	}

	prefixLen := 0
	suffixLen := 0
	if e.caps.SupportsSyncUpdate {
		prefixLen = len(syncBegin)
		suffixLen = len(syncEnd)
	}
	bodyCap := cap(e.outBuf) - prefixLen - suffixLen
	if bodyCap <= 0 {
		return ErrLimit
	}
	body := e.outBuf[prefixLen:prefixLen:prefixLen+bodyCap]

	opts := RenderOptions{
		Caps:           e.caps,
		State:          &e.shadow,
		Cursor:         &e.cursor,
		Scratch:        e.scratch,
		AllowScrollOpt: e.cfg.EnableScrollOpt,
	}
	n, stats, err := RenderDiff(body, e.prev, e.next, &opts)
	if err != nil {
		e.metrics.PresentErrors++
		return err
	}

	out := e.outBuf[:0]
	if n > 0 && e.caps.SupportsSyncUpdate {
		out = append(out, syncBegin...)
		out = out[:prefixLen+n]
		out = append(out, syncEnd...)
	} else if n > 0 {
		// Body was rendered at an offset; slide it to the front.
		copy(e.outBuf[:cap(e.outBuf)][0:n], e.outBuf[prefixLen:prefixLen+n])
		out = e.outBuf[:n]
	}
	if err := e.plat.WriteOutput(out); err != nil {
		// The terminal state is unknown after a failed write.
		e.shadow.Invalidate()
		e.metrics.PresentErrors++
		return fmt.Errorf("%w: write: %v", ErrPlatform, err)
	}

	// Resync the previous frame from the next one via the damage rects
	// accumulated by this frame's submissions.
	if e.damage.FullFrame() {
		e.prev.CopyFrom(e.next, e.next.Bounds())
	} else {
		for _, r := range e.damage.Rects() {
			e.prev.CopyFrom(e.next, r)
		}
	}

	e.metrics.FrameIndex++
	e.metrics.BytesEmittedTotal += uint64(len(out))
	e.metrics.BytesEmittedLast = uint32(len(out))
	e.metrics.DirtyLinesLastFrame = stats.DirtyRows
	e.metrics.DirtyCellsLastFrame = stats.CellsWritten
	e.metrics.SpansLastFrame = stats.SpansEmitted
	e.metrics.CollisionGuardHits += stats.CollisionGuardHits
	e.metrics.ScrollOptAttempted += stats.ScrollOptAttempted
	e.metrics.ScrollOptHit += stats.ScrollOptHit
	if stats.PathSweep {
		e.metrics.SweepPathFrames++
	} else {
		e.metrics.DamagePathFrames++
	}
	Logf("present: frame=%d bytes=%d dirtyRows=%d sweep=%v",
		e.metrics.FrameIndex, len(out), stats.DirtyRows, stats.PathSweep)

	e.damage.BeginFrame(e.damageStore, e.next.cols, e.next.rows)
	e.frame.Reset()
	return nil
}

var (
	syncBegin = []byte("\x1b[?2026h")
	syncEnd   = []byte("\x1b[?2026l")
)

// PollEvents drains platform input, synthesizes an overdue TICK, and packs
// pending events into out as an event batch. Returns the batch size.
// A zero timeout polls without blocking.
func (e *Engine) PollEvents(timeoutMS int, out []byte) (int, error) {
	if e.closed {
		return 0, ErrInvalidArgument
	}
	w, err := BeginBatch(out)
	if err != nil {
		return 0, err
	}

	tickInterval := uint64(1000 / e.cfg.TargetFPS)
	if tickInterval == 0 {
		tickInterval = 1
	}
	wait := timeoutMS
	now := e.plat.NowMS()
	if due := e.lastTickMS + tickInterval; e.queue.Len() == 0 {
		if now < due {
			untilTick := int(due - now)
			if wait < 0 || wait > untilTick {
				wait = untilTick
			}
		} else {
			wait = 0
		}
	} else {
		wait = 0
	}

	ready, werr := e.plat.Wait(wait)
	if werr != nil {
		return 0, fmt.Errorf("%w: wait: %v", ErrPlatform, werr)
	}
	now = e.plat.NowMS()
	if ready > 0 {
		e.readInput(uint32(now))
	}
	e.checkResize()

	if now-e.lastTickMS >= tickInterval {
		e.queue.Push(Event{Type: EventTick, TimeMS: uint32(now), DtMS: uint32(now - e.lastTickMS)})
		e.lastTickMS = now
	}

	e.queue.DrainTo(func(ev Event, payload []byte) bool {
		return w.AppendEvent(ev, payload)
	})
	e.metrics.EventsDropped = e.queue.Dropped()
	return w.Finish(), nil
}

// readInput reads pending bytes and parses them, carrying any incomplete
// escape or UTF-8 tail to the next read.
func (e *Engine) readInput(timeMS uint32) {
	for {
		n, err := e.plat.ReadInput(e.inBuf)
		if err != nil || n <= 0 {
			break
		}
		e.inTail = append(e.inTail, e.inBuf[:n]...)
		consumed := e.parser.ParseBytesPrefix(e.queue, e.inTail, timeMS)
		e.inTail = e.inTail[:copy(e.inTail, e.inTail[consumed:])]
		if n < len(e.inBuf) {
			break
		}
	}
}

// checkResize compares the port size against the framebuffers and, on
// change, resizes both, clears the shadow validity flags, and queues a
// RESIZE event.
func (e *Engine) checkResize() {
	cols, rows, err := e.plat.Size()
	if err != nil || (cols == e.next.cols && rows == e.next.rows) {
		return
	}
	if e.next.Resize(cols, rows) != nil || e.prev.Resize(cols, rows) != nil {
		return
	}
	e.shadow.Invalidate()
	e.scratch.Invalidate()
	e.damage.BeginFrame(e.damageStore, cols, rows)
	e.damage.SetFullFrame()
	if e.cursor.X >= cols {
		e.cursor.X = cols - 1
	}
	if e.cursor.Y >= rows {
		e.cursor.Y = rows - 1
	}
	e.queue.Push(Event{
		Type:   EventResize,
		TimeMS: uint32(e.plat.NowMS()),
		Cols:   uint32(cols),
		Rows:   uint32(rows),
	})
}

// GetMetrics copies up to len(out) bytes of the serialized metrics
// snapshot. The layout is append-only, so older callers read a valid
// prefix.
func (e *Engine) GetMetrics(out []byte) int {
	return e.metrics.CopyPrefix(out)
}

// restoreTerminal performs the best-effort terminal restore used by Close
// and the abort hooks: reset the scroll region and SGR, show the cursor,
// leave raw mode.
func (e *Engine) restoreTerminal() {
	_ = e.plat.WriteOutput([]byte("\x1b[r\x1b[0m\x1b[?25h"))
	_ = e.plat.LeaveRaw()
}

// Close restores the terminal, deregisters the restore hook, and marks the
// engine unusable. The platform port itself stays open; its creator closes
// it.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.restoreTerminal()
	if e.cfg.InstallRestoreHooks {
		deregisterEngineForRestore(e)
	}
	return nil
}
