package zireael

import "errors"

// Error kinds surfaced by the engine. All failures are non-partial: a call
// that returns one of these left every output (byte buffers, framebuffers,
// event queues, resource tables) as if the call had not been made.
var (
	// ErrInvalidArgument reports a caller mistake: out-of-bounds rectangles,
	// zero dimensions, nil required parameters, inverted limit pairs.
	ErrInvalidArgument = errors.New("zireael: invalid argument")

	// ErrLimit reports that a configured limit was exceeded: drawlist too
	// large, clip stack too deep, output buffer too small for the frame.
	ErrLimit = errors.New("zireael: limit exceeded")

	// ErrFormat reports a malformed drawlist or batch: bad magic, misaligned
	// or overlapping sections, references to freed resources.
	ErrFormat = errors.New("zireael: malformed input")

	// ErrUnsupported reports a version or capability mismatch: unknown
	// drawlist version or opcode, pixel blit without an image protocol.
	ErrUnsupported = errors.New("zireael: unsupported")

	// ErrPlatform wraps errors surfaced by the platform port. The engine
	// never retries platform operations.
	ErrPlatform = errors.New("zireael: platform error")
)
