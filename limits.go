package zireael

// Limits bounds every engine allocation and input. Each field must be
// non-zero; ArenaInitialBytes must not exceed ArenaMaxTotalBytes.
type Limits struct {
	ArenaMaxTotalBytes   uint32
	ArenaInitialBytes    uint32
	OutMaxBytesPerFrame  uint32
	DLMaxTotalBytes      uint32
	DLMaxCmds            uint32
	DLMaxStrings         uint32
	DLMaxBlobs           uint32
	DLMaxClipDepth       uint32
	DLMaxTextRunSegments uint32
	DiffMaxDamageRects   uint32
	EventQueueCap        uint32
	EventBytesCap        uint32
}

// DefaultLimits returns the pinned defaults.
func DefaultLimits() Limits {
	return Limits{
		ArenaMaxTotalBytes:   4 * 1024 * 1024,
		ArenaInitialBytes:    64 * 1024,
		OutMaxBytesPerFrame:  256 * 1024,
		DLMaxTotalBytes:      256 * 1024,
		DLMaxCmds:            4096,
		DLMaxStrings:         4096,
		DLMaxBlobs:           4096,
		DLMaxClipDepth:       64,
		DLMaxTextRunSegments: 4096,
		DiffMaxDamageRects:   4096,
		EventQueueCap:        256,
		EventBytesCap:        64 * 1024,
	}
}

// Validate rejects zero fields, inverted arena capacities, and clip depths
// beyond the painter's stack.
func (l *Limits) Validate() error {
	fields := []uint32{
		l.ArenaMaxTotalBytes, l.ArenaInitialBytes, l.OutMaxBytesPerFrame,
		l.DLMaxTotalBytes, l.DLMaxCmds, l.DLMaxStrings, l.DLMaxBlobs,
		l.DLMaxClipDepth, l.DLMaxTextRunSegments, l.DiffMaxDamageRects,
		l.EventQueueCap, l.EventBytesCap,
	}
	for _, f := range fields {
		if f == 0 {
			return ErrInvalidArgument
		}
	}
	if l.ArenaInitialBytes > l.ArenaMaxTotalBytes {
		return ErrInvalidArgument
	}
	if l.DLMaxClipDepth > ClipStackMax {
		return ErrInvalidArgument
	}
	return nil
}
