package agent

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
)

// cleanTail turns captured terminal output into plain text that survives
// an XML round trip. Escape sequences go, a carriage return keeps only
// what was last drawn on the line, and other control characters are
// dropped.
func cleanTail(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if j := strings.LastIndexByte(line, '\r'); j >= 0 {
			line = line[j+1:]
		}
		lines[i] = strings.Map(func(r rune) rune {
			if r == '\t' || !unicode.IsControl(r) {
				return r
			}
			return -1
		}, line)
	}
	return strings.Join(lines, "\n")
}
