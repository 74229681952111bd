package components

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)
)

func isBidiControl(r rune) bool {
	switch r {
	case '\u200e', '\u200f',
		'\u202a', '\u202b', '\u202c', '\u202d', '\u202e',
		'\u2066', '\u2067', '\u2068', '\u2069':
		return true
	}
	return false
}

// SanitizeText strips escape sequences, bidi overrides and control characters
// other than newline and tab. Page titles and props come from config files, so
// everything user-supplied passes through here before it is drawn.
func SanitizeText(input string) string {
	if input == "" {
		return input
	}
	cleaned := oscPattern.ReplaceAllString(input, "")
	cleaned = csiPattern.ReplaceAllString(cleaned, "")
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case isBidiControl(r), unicode.IsControl(r):
			return -1
		}
		return r
	}, cleaned)
}

// SanitizeOneLine is SanitizeText with line breaks and tabs folded to spaces.
func SanitizeOneLine(input string) string {
	cleaned := SanitizeText(input)
	cleaned = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(cleaned)
	return strings.TrimSpace(cleaned)
}
