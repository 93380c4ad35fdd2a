package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Normalize converts line endings to \n, drops NUL and other control
// characters except newline and tab, and trims surrounding whitespace.
func Normalize(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\uFEFF' {
			return -1
		}
		return r
	}, s)
	s = excessBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
