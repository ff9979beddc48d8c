package zireael

// ColorMode is the color depth the diff renderer lowers to.
type ColorMode uint8

const (
	ColorMono ColorMode = iota
	Color16
	Color256
	ColorRGB
)

// PlatformCaps describes what the attached terminal can do. Every field is
// observable in the diff renderer's output.
type PlatformCaps struct {
	ColorMode                ColorMode
	SupportsMouse            bool
	SupportsBracketedPaste   bool
	SupportsFocusEvents      bool
	SupportsOSC52            bool
	SupportsSyncUpdate       bool
	SupportsScrollRegion     bool
	SupportsCursorShape      bool
	SupportsOutputWaitWritable bool
	SupportsUnderlineStyles  bool
	SupportsColoredUnderlines bool
	SupportsHyperlinks       bool
	SGRAttrsSupported        Attr
}

// DefaultCaps returns a conservative modern-terminal capability set.
func DefaultCaps() PlatformCaps {
	return PlatformCaps{
		ColorMode:            Color256,
		SupportsScrollRegion: true,
		SupportsCursorShape:  true,
		SGRAttrsSupported:    AttrMaskAll,
	}
}

// ImageProtocol identifies a terminal-native image transport negotiated by
// capability detection. The core only gates on None vs non-None; protocol
// emission lives outside the core.
type ImageProtocol uint8

const (
	ImageProtocolNone ImageProtocol = iota
	ImageProtocolKitty
	ImageProtocolSixel
	ImageProtocolITerm2
)

// TerminalProfile is the capability-detection result for the attached
// terminal. Produced by a prober outside the core; the executor and the
// blitter selection consume it.
type TerminalProfile struct {
	Name              string
	DumbTerminal      bool
	PipeMode          bool
	SupportsHalfblocks bool
	SupportsQuadrants bool
	SupportsSextants  bool
	SupportsBraille   bool
	ImageProtocol     ImageProtocol
}

// DefaultProfile assumes a contemporary UTF-8 terminal with sextant
// support and no native image protocol.
func DefaultProfile() TerminalProfile {
	return TerminalProfile{
		SupportsHalfblocks: true,
		SupportsQuadrants:  true,
		SupportsSextants:   true,
		SupportsBraille:    true,
	}
}
