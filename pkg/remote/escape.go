package remote

import (
	"strings"
)

// Escape quotes s for a POSIX shell. The result is always a single word,
// even for empty strings and strings with spaces or quotes.
func Escape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Brackets encodes items as a shell array literal: each item escaped,
// joined by single spaces, wrapped in parentheses.
//
//	Brackets([]string{"a", "b c", ""}) == "( 'a' 'b c' '' )"
func Brackets(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = Escape(item)
	}
	if len(escaped) == 0 {
		return "( )"
	}
	return "( " + strings.Join(escaped, " ") + " )"
}
