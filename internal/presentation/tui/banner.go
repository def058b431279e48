package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the reroll ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Warm gradient (Amber/Rose)
	lines := []struct {
		text  string
		color string
	}{
		{"                      _ _ ", "#fbbf24"},
		{"  _ __ ___ _ __ ___ | | |", "#fb923c"},
		{" | '__/ _ \\ '__/ _ \\| | |", "#f87171"},
		{" | | |  __/ | | (_) | | |", "#f472b6"},
		{" |_|  \\___|_|  \\___/|_|_|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
