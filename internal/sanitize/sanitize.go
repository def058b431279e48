package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxTemplateSize is 4KB (conservative default)
	DefaultMaxTemplateSize = 4096
	// EnvMaxTemplateSize is the environment variable to override the default
	EnvMaxTemplateSize = "REROLL_MAX_TEMPLATE_SIZE"
	// MaxSessionIDLength bounds session identifiers, which become file names and keys.
	MaxSessionIDLength = 128
)

var (
	ErrTooLarge         = errors.New("template exceeds maximum allowed size")
	ErrInvalidUTF8      = errors.New("template contains invalid UTF-8 sequences")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Template cleans an ad-hoc template by enforcing the size limit,
// validating UTF-8, and stripping control characters.
func Template(input string) (string, error) {
	limit := maxTemplateSize()
	if len(input) > limit {
		// Rejected rather than truncated: a cut template changes meaning.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return survive; ESC, NULL, BEL and the rest
	// would poison logs and terminals.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SessionID accepts identifiers made of letters, digits, '-', '_' and '.',
// not starting with '.', so they are safe as file names and Redis keys.
func SessionID(id string) (string, error) {
	if id == "" || len(id) > MaxSessionIDLength || id[0] == '.' {
		return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
		}
	}
	return id, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

func maxTemplateSize() int {
	if val := os.Getenv(EnvMaxTemplateSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxTemplateSize
}
