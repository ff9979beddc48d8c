package zireael

import "github.com/unilibs/uniwidth"

// WidthPolicy controls how policy-dependent emoji are measured. CJK wide
// characters are always 2 columns and combining marks always 0 regardless
// of policy.
type WidthPolicy uint8

const (
	// WidthEmojiNarrow measures pictographic emoji as 1 column.
	WidthEmojiNarrow WidthPolicy = iota
	// WidthEmojiWide measures pictographic emoji (and VS16/keycap
	// sequences) as 2 columns. This is the pinned default.
	WidthEmojiWide
)

const (
	vs16          = 0xFE0F
	combiningKeycap = 0x20E3
	riFirst       = 0x1F1E6
	riLast        = 0x1F1FF
)

// runeWidth returns the display width of a single scalar under the policy:
// 0 for combining marks and controls, 2 for CJK wide and (under
// WidthEmojiWide) pictographic emoji, 1 otherwise.
func runeWidth(r rune, policy WidthPolicy) int {
	w := uniwidth.RuneWidth(r)
	if policy == WidthEmojiNarrow && w == 2 && isPictographic(r) {
		return 1
	}
	if policy == WidthEmojiWide && w < 2 && isPictographic(r) {
		return 2
	}
	if w < 0 {
		return 0
	}
	return w
}

// isPictographic reports whether r falls in the extended-pictographic
// ranges whose width depends on the emoji policy. This is a pinned subset
// of Unicode 15.1 Extended_Pictographic sufficient for the policy split;
// CJK ideographs are deliberately excluded.
func isPictographic(r rune) bool {
	switch {
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // misc symbols and arrows
		return true
	case r >= riFirst && r <= riLast: // regional indicators
		return true
	case r >= 0x1F000 && r <= 0x1F0FF: // mahjong, dominoes, cards
		return true
	case r >= 0x1F300 && r <= 0x1F5FF: // misc symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F700 && r <= 0x1F77F: // alchemical
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x1FA00 && r <= 0x1FAFF: // extended-A symbols
		return true
	}
	return false
}

// GraphemeWidth returns the display width of one grapheme cluster: the max
// of its constituents' widths under the policy, with three cluster-level
// rules pinned on top: a regional-indicator pair is 2, a VS16 presentation
// selector forces 2 under WidthEmojiWide (this covers keycap sequences),
// and an empty cluster is 0.
func GraphemeWidth(cluster []byte, policy WidthPolicy) int {
	w := 0
	riCount := 0
	hasVS16 := false
	for i := 0; i < len(cluster); {
		d := DecodeScalar(cluster[i:])
		if d.Size == 0 {
			break
		}
		if d.Valid {
			switch {
			case d.Scalar == vs16:
				hasVS16 = true
			case d.Scalar >= riFirst && d.Scalar <= riLast:
				riCount++
			}
			if rw := runeWidth(d.Scalar, policy); rw > w {
				w = rw
			}
		} else if w < 1 {
			w = 1 // U+FFFD renders as width 1
		}
		i += d.Size
	}
	if riCount >= 2 {
		return 2
	}
	if hasVS16 && policy == WidthEmojiWide {
		return 2
	}
	return w
}

// StringWidth returns the total display width of a string under the policy,
// summing grapheme cluster widths.
func StringWidth(s string, policy WidthPolicy) int {
	total := 0
	it := NewGraphemeIterator([]byte(s))
	for {
		cluster, ok := it.Next()
		if !ok {
			break
		}
		total += GraphemeWidth(cluster, policy)
	}
	return total
}
