package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Fold maps full-width ASCII variants (digits, commas, colons, slashes,
// tildes) to their narrow forms so one pattern
// matches both renderings carriers use.
func Fold(s string) string {
	return width.Fold.String(s)
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// Truncate returns at most max runes of s.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
