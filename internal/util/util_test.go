package util

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"111111111":         "48111111111",
		"+48 111-111-111":   "48111111111",
		"0048111111111":     "48111111111",
		"(48) 222 222 222":  "48222222222",
		"tel: 601 200 300 ": "48601200300",
		"4915112345678":     "4915112345678",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), "input %q", in)
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	_, err := ulid.Parse(a)
	require.NoError(t, err)
}
