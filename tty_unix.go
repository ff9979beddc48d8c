//go:build unix

package zireael

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// TTY is the default POSIX platform port: stdin/stdout, termios raw mode,
// poll-based waits, and a self-pipe wake.
type TTY struct {
	cfg     PlatformConfig
	in      *os.File
	out     *os.File
	state   *term.State
	caps    PlatformCaps
	profile TerminalProfile
	wakeR   *os.File
	wakeW   *os.File
	start   time.Time
	raw     bool
}

// NewTTY opens a port over stdin/stdout, detecting capabilities from the
// environment (color depth via termenv, pipe mode via isatty).
func NewTTY(cfg PlatformConfig) (*TTY, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	t := &TTY{
		cfg:   cfg,
		in:    os.Stdin,
		out:   os.Stdout,
		wakeR: r,
		wakeW: w,
		start: time.Now(),
	}
	t.detect()
	return t, nil
}

func (t *TTY) detect() {
	tty := isatty.IsTerminal(t.out.Fd())

	mode := t.cfg.RequestedColorMode
	if mode == ColorModeAuto {
		switch termenv.ColorProfile() {
		case termenv.TrueColor:
			mode = ColorRGB
		case termenv.ANSI256:
			mode = Color256
		case termenv.ANSI:
			mode = Color16
		default:
			mode = ColorMono
		}
	}
	t.caps = PlatformCaps{
		ColorMode:                  mode,
		SupportsMouse:              tty && t.cfg.EnableMouse,
		SupportsBracketedPaste:     tty && t.cfg.EnableBracketedPaste,
		SupportsFocusEvents:        tty && t.cfg.EnableFocusEvents,
		SupportsOSC52:              tty && t.cfg.EnableOSC52,
		SupportsScrollRegion:       tty,
		SupportsCursorShape:        tty,
		SupportsOutputWaitWritable: true,
		SupportsHyperlinks:         tty && mode == ColorRGB,
		SGRAttrsSupported:          AttrMaskAll,
	}
	t.profile = TerminalProfile{
		Name:               os.Getenv("TERM"),
		DumbTerminal:       os.Getenv("TERM") == "dumb",
		PipeMode:           !tty,
		SupportsHalfblocks: true,
		SupportsQuadrants:  true,
		SupportsSextants:   true,
		SupportsBraille:    true,
	}
}

// Profile returns the detected terminal profile.
func (t *TTY) Profile() TerminalProfile { return t.profile }

// Close releases the wake pipe. Raw mode should already be left.
func (t *TTY) Close() error {
	_ = t.wakeR.Close()
	return t.wakeW.Close()
}

// EnterRaw switches the terminal into raw mode and negotiates the
// configured reporting modes.
func (t *TTY) EnterRaw() error {
	if t.raw {
		return nil
	}
	st, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return err
	}
	t.state = st
	t.raw = true
	var seq []byte
	if t.caps.SupportsMouse {
		seq = append(seq, "\x1b[?1000h\x1b[?1002h\x1b[?1006h"...)
	}
	if t.caps.SupportsBracketedPaste {
		seq = append(seq, "\x1b[?2004h"...)
	}
	if t.caps.SupportsFocusEvents {
		seq = append(seq, "\x1b[?1004h"...)
	}
	if len(seq) > 0 {
		_, _ = t.out.Write(seq)
	}
	return nil
}

// LeaveRaw undoes EnterRaw.
func (t *TTY) LeaveRaw() error {
	if !t.raw {
		return nil
	}
	var seq []byte
	if t.caps.SupportsFocusEvents {
		seq = append(seq, "\x1b[?1004l"...)
	}
	if t.caps.SupportsBracketedPaste {
		seq = append(seq, "\x1b[?2004l"...)
	}
	if t.caps.SupportsMouse {
		seq = append(seq, "\x1b[?1006l\x1b[?1002l\x1b[?1000l"...)
	}
	if len(seq) > 0 {
		_, _ = t.out.Write(seq)
	}
	t.raw = false
	return term.Restore(int(t.in.Fd()), t.state)
}

// Size reports the terminal dimensions via TIOCGWINSZ.
func (t *TTY) Size() (cols, rows int, err error) {
	ws, err := unix.IoctlGetWinsize(int(t.out.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 80, 24, nil
	}
	if ws.Col == 0 || ws.Row == 0 {
		return 80, 24, nil
	}
	return int(ws.Col), int(ws.Row), nil
}

// Caps reports the detected capability set.
func (t *TTY) Caps() PlatformCaps { return t.caps }

// ReadInput performs one non-blocking read of pending bytes.
func (t *TTY) ReadInput(buf []byte) (int, error) {
	fds := []unix.PollFd{{Fd: int32(t.in.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 {
		return 0, nil
	}
	return t.in.Read(buf)
}

// WriteOutput writes the frame bytes in full.
func (t *TTY) WriteOutput(b []byte) error {
	for len(b) > 0 {
		n, err := t.out.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Wait blocks until stdin is readable, a wake fires, or the timeout
// elapses. Returns >0 when input is readable.
func (t *TTY) Wait(timeoutMS int) (int, error) {
	fds := []unix.PollFd{
		{Fd: int32(t.in.Fd()), Events: unix.POLLIN},
		{Fd: int32(t.wakeR.Fd()), Events: unix.POLLIN},
	}
	n, err := unix.Poll(fds, timeoutMS)
	if err == unix.EINTR {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if fds[1].Revents&unix.POLLIN != 0 {
		var drain [64]byte
		_, _ = t.wakeR.Read(drain[:])
	}
	if fds[0].Revents&unix.POLLIN != 0 {
		return 1, nil
	}
	return 0, nil
}

// WaitOutputWritable blocks until stdout accepts writes.
func (t *TTY) WaitOutputWritable(timeoutMS int) error {
	fds := []unix.PollFd{{Fd: int32(t.out.Fd()), Events: unix.POLLOUT}}
	_, err := unix.Poll(fds, timeoutMS)
	if err == unix.EINTR {
		return nil
	}
	return err
}

// Wake interrupts a concurrent Wait via the self-pipe.
func (t *TTY) Wake() {
	_, _ = t.wakeW.Write([]byte{0})
}

// NowMS is a monotonic millisecond clock.
func (t *TTY) NowMS() uint64 {
	return uint64(time.Since(t.start) / time.Millisecond)
}

var _ Platform = (*TTY)(nil)
