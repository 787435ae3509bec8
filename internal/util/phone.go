package util

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone reduces user input to bare digits with the Polish country
// code: "+48 111-111-111", "0048111111111" and "111111111" all become
// "48111111111". Numbers that are neither 9 digits nor prefixed are kept as digits.
func NormalizePhone(raw string) string {
	s := nonDigits.ReplaceAllString(strings.TrimSpace(raw), "")

	if strings.HasPrefix(s, "00") {
		s = s[2:]
	}
	if len(s) == 9 {
		s = "48" + s
	}

	return s
}
