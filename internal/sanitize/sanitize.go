// Package sanitize prepares outbound SMS text: Polish diacritics are
// transliterated to ASCII and the result is capped at one SMS segment.
package sanitize

import "strings"

const (
	// MaxLen is the cap in characters (runes) of a sanitized message.
	MaxLen   = 160
	Ellipsis = "..."
)

var diacritics = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n", "ó", "o", "ś", "s", "ź", "z", "ż", "z",
	"Ą", "A", "Ć", "C", "Ę", "E", "Ł", "L", "Ń", "N", "Ó", "O", "Ś", "S", "Ź", "Z", "Ż", "Z",
)

// Sanitize transliterates and truncates text. It never fails and
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(text string) string {
	clean := Transliterate(text)

	runes := []rune(clean)
	if len(runes) <= MaxLen {
		return clean
	}
	return string(runes[:MaxLen-len(Ellipsis)]) + Ellipsis
}

// Transliterate replaces Polish diacritics without applying the length cap.
func Transliterate(text string) string {
	return diacritics.Replace(text)
}

// Len reports the length Sanitize measures against MaxLen.
func Len(text string) int {
	return len([]rune(text))
}
