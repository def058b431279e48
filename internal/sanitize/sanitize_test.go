package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_SizeLimit(t *testing.T) {
	limit := DefaultMaxTemplateSize

	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Template(strings.Repeat("a", tt.size))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTemplate_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxTemplateSize, "8")

	_, err := Template("{a|b|c|d}")
	assert.ErrorIs(t, err, ErrTooLarge)

	t.Setenv(EnvMaxTemplateSize, "not-a-number")
	_, err = Template("{a|b|c|d}")
	assert.NoError(t, err, "invalid values fall back to the default")
}

func TestTemplate_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "a {red|blue} cat", "a {red|blue} cat"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31m{a|b}\x1b[0m", "[31m{a|b}[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Bell", "Ding\x07", "Ding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Template(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTemplate_InvalidUTF8(t *testing.T) {
	_, err := Template("bad \xff byte")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestSessionID(t *testing.T) {
	valid := []string{"s", "my-session_1", "a.b", strings.Repeat("x", MaxSessionIDLength)}
	for _, id := range valid {
		got, err := SessionID(id)
		assert.NoError(t, err, id)
		assert.Equal(t, id, got)
	}

	invalid := []string{"", ".hidden", "../etc", "a/b", "a b", "ü", strings.Repeat("x", MaxSessionIDLength+1)}
	for _, id := range invalid {
		_, err := SessionID(id)
		assert.ErrorIs(t, err, ErrInvalidSessionID, id)
	}
}
