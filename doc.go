// Package zireael is a retained-mode, double-buffered terminal rendering
// engine. It consumes validated binary drawlists, composes a next-frame
// cell grid, diffs it against the previously presented frame, and emits a
// minimal VT/ANSI byte stream in a single flush. Raw terminal input is
// parsed into structured event batches on the way back.
//
// # Quick Start
//
// Open the default TTY port, create an engine, and drive the frame loop:
//
//	plat, _ := zireael.NewTTY(zireael.DefaultPlatformConfig())
//	eng, err := zireael.NewEngine(plat, zireael.DefaultEngineConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer eng.Close()
//
//	b := zireael.NewDrawlistBuilder(zireael.DrawlistVersionCurrent)
//	b.Clear()
//	b.DrawTextStr(2, 1, "hello", zireael.Style{FG: 0xE5E5E5})
//	if err := eng.SubmitDrawlist(b.Finish()); err != nil {
//		log.Fatal(err)
//	}
//	if err := eng.Present(); err != nil {
//		log.Fatal(err)
//	}
//
// # Architecture
//
// The package is organized around these core types:
//
//   - [Engine]: owns the frame pipeline and the platform port
//   - [Framebuffer]: a grid of [Cell] values plus an interned link table
//   - [Painter]: clipped writes into a framebuffer
//   - [View]: the read-only result of validating a drawlist
//   - [EventQueue]: bounded event ring with coalescing
//   - [TTY]: the default POSIX platform port
//
// # Frame cycle
//
// Each frame the caller submits one or more drawlists, then presents:
// SubmitDrawlist validates the byte stream ([ValidateDrawlist]) and
// executes it into the next-frame framebuffer; Present diffs the previous
// frame against it ([RenderDiff]) under the platform capability model and
// hands the byte stream to the port in exactly one write. Failed
// submissions roll back completely, and a failed present writes nothing.
//
// # Events
//
// PollEvents drains the platform port, parses VT input (UTF-8 text,
// CSI/SS3 keys, SGR mouse, bracketed paste), synthesizes frame ticks, and
// packs everything into a little-endian event batch in the caller's
// buffer. PostUser and PostPaste on the [EventQueue] are safe from other
// goroutines and wake a blocked poll through the port.
package zireael
