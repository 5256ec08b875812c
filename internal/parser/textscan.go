package parser

import "strings"

// indexIgnoringSpaces finds the first occurrence of marker in s, tolerating
// arbitrary whitespace between marker characters. PDF extraction frequently
// glues or splits header tokens ("DATE COMPTABLE" vs "DATECOMPTABLE"), so
// anchor markers are matched on their non-space characters only. Returns the
// start and end byte offsets of the occurrence in s, or (-1, -1).
func indexIgnoringSpaces(s, marker string) (int, int) {
	marker = strings.Map(func(r rune) rune {
		if r == ' ' {
			return -1
		}
		return r
	}, marker)
	if marker == "" {
		return -1, -1
	}

	for start := 0; start < len(s); start++ {
		if s[start] != marker[0] {
			continue
		}
		mi := 0
		i := start
		for i < len(s) && mi < len(marker) {
			c := s[i]
			if c == ' ' || c == '\n' || c == '\r' || c == '\t' || isNBSPAt(s, i) {
				if isNBSPAt(s, i) {
					i += 2
				} else {
					i++
				}
				continue
			}
			if c != marker[mi] {
				break
			}
			mi++
			i++
		}
		if mi == len(marker) {
			return start, i
		}
	}
	return -1, -1
}

// isNBSPAt reports whether a UTF-8 non-breaking space starts at byte i.
func isNBSPAt(s string, i int) bool {
	return i+1 < len(s) && s[i] == 0xC2 && s[i+1] == 0xA0
}

// firstIndexOfAny returns the smallest offset at which any of the markers
// occurs (whitespace-insensitively), or -1.
func firstIndexOfAny(s string, markers ...string) int {
	best := -1
	for _, m := range markers {
		if start, _ := indexIgnoringSpaces(s, m); start >= 0 {
			if best < 0 || start < best {
				best = start
			}
		}
	}
	return best
}
