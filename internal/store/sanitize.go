package store

import (
	"strings"
	"unicode"
)

// MaxNameLength is the longest run name stored, in runes.
const MaxNameLength = 64

// SanitizeRunName drops non-printable characters, collapses whitespace runs
// to one space and truncates to MaxNameLength runes.
func SanitizeRunName(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	space := false
	n := 0
	for _, r := range strings.TrimSpace(input) {
		if n == MaxNameLength {
			break
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		if space && n > 0 {
			b.WriteByte(' ')
			n++
			if n == MaxNameLength {
				break
			}
		}
		space = false
		b.WriteRune(r)
		n++
	}
	return b.String()
}
