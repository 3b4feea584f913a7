// Package sanitize normalizes free text before analysis so unicode tricks
// and control bytes cannot slip past the pattern layer.
package sanitize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxInputBytes is the hard limit on analyzable input size.
const MaxInputBytes = 32 * 1024

// Clean applies NFKC normalization, strips control characters (tab, newline
// and carriage return survive), and trims surrounding whitespace.
func Clean(s string) string {
	normalized := norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if isStrippedControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// isStrippedControl reports whether r is a control character that must be
// removed. \t, \n and \r are legitimate in free text and kept.
func isStrippedControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return r < 0x20 || r == 0x7f
}

// Truncate caps s at MaxInputBytes without splitting a rune.
func Truncate(s string) string {
	if len(s) <= MaxInputBytes {
		return s
	}
	cut := MaxInputBytes
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
