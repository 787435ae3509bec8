package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_Transliterates(t *testing.T) {
	got := Sanitize("Zażółć gęślą jaźń, Łódź! ŚĆĘĄŃÓŹŻ")
	assert.Equal(t, "Zazolc gesla jazn, Lodz! SCEANOZZ", got)
}

func TestSanitize_KeepsShortTextAndEmoji(t *testing.T) {
	in := "Hej Aniu ✨ -20% na manicure 💅"
	assert.Equal(t, in, Sanitize(in))
}

func TestSanitize_Truncates(t *testing.T) {
	in := strings.Repeat("abcdefghij", 20) // 200 ASCII chars

	got := Sanitize(in)

	require.Equal(t, MaxLen, Len(got))
	assert.True(t, strings.HasSuffix(got, Ellipsis))
	assert.Equal(t, in[:157], got[:157])
}

func TestSanitize_ExactlyAtCap(t *testing.T) {
	in := strings.Repeat("x", MaxLen)
	assert.Equal(t, in, Sanitize(in))

	in = strings.Repeat("x", MaxLen+1)
	assert.Equal(t, strings.Repeat("x", 157)+"...", Sanitize(in))
}

func TestSanitize_CountsRunesNotBytes(t *testing.T) {
	// 150 two-byte letters become 150 ASCII letters, no truncation.
	in := strings.Repeat("ł", 150)
	assert.Equal(t, strings.Repeat("l", 150), Sanitize(in))

	emoji := strings.Repeat("💖", 170)
	got := Sanitize(emoji)
	assert.Equal(t, MaxLen, Len(got))
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Cześć Małgosiu!",
		strings.Repeat("ąęś", 80),
		strings.Repeat("a", 159) + "ż",
		strings.Repeat("Ż", 200),
		"plain ascii",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.LessOrEqual(t, Len(once), MaxLen)
	}
}
