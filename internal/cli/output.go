package cli

import (
	"io"
	"os"

	"github.com/aretw0/reroll/internal/presentation/tui"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultWidth wraps rendered markdown when the terminal size is unknown.
const DefaultWidth = 80

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or DefaultWidth.
func Width(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return DefaultWidth
}

// Profile picks the colour profile for w. Pipes and NO_COLOR get plain ASCII.
func Profile(w io.Writer) termenv.Profile {
	if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}

// Highlighter returns a fragment highlighter suited to w.
func Highlighter(w io.Writer, numbers bool) *tui.Highlighter {
	h := tui.NewHighlighter(Profile(w))
	h.Numbers = numbers
	return h
}

// Markdown renders markdown through glamour on a terminal and passes it
// through unchanged otherwise.
func Markdown(w io.Writer, md string) string {
	if !IsTerminal(w) {
		return md
	}
	out, err := tui.NewRenderer(Width(w))(md)
	if err != nil {
		return md
	}
	return out
}
