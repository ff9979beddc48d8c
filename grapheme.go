package zireael

import "github.com/rivo/uniseg"

// GraphemeIterator walks grapheme cluster boundaries over a byte slice.
// Segmentation follows UAX #29 via uniseg: Extend and SpacingMark joining,
// regional-indicator pairs, ZWJ-joined pictographic sequences, and emoji
// variation selectors. The iterator always makes progress, even on
// malformed UTF-8 (each bad byte advances at least one position).
type GraphemeIterator struct {
	rest  []byte
	state int
}

// NewGraphemeIterator creates an iterator over b. The slice is not copied.
func NewGraphemeIterator(b []byte) *GraphemeIterator {
	return &GraphemeIterator{rest: b, state: -1}
}

// Next returns the next grapheme cluster, or (nil, false) at the end.
func (it *GraphemeIterator) Next() ([]byte, bool) {
	if len(it.rest) == 0 {
		return nil, false
	}
	cluster, rest, _, state := uniseg.FirstGraphemeCluster(it.rest, it.state)
	if len(cluster) == 0 {
		// uniseg never returns an empty cluster for non-empty input, but
		// guarantee forward progress regardless.
		cluster = it.rest[:1]
		rest = it.rest[1:]
	}
	it.rest = rest
	it.state = state
	return cluster, true
}
