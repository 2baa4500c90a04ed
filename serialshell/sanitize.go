package serialshell

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var hexBytePattern = regexp.MustCompile(`0x[0-9A-Fa-f]{2}`)

// Sanitize decodes bytes received from the port for display. Invalid UTF-8
// sequences are replaced with U+FFFD and surrounding whitespace is trimmed.
// The received bytes themselves are left untouched.
func Sanitize(received []byte) string {
	text := string(received)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, string(utf8.RuneError))
	}
	return strings.TrimSpace(text)
}

// HighlightHex passes every "0x" literal followed by two hex digits in text
// through highlight and returns the result. A nil highlight returns text
// unchanged.
func HighlightHex(text string, highlight func(string) string) string {
	if highlight == nil {
		return text
	}
	return hexBytePattern.ReplaceAllStringFunc(text, highlight)
}
