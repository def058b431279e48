package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/muesli/termenv"
)

// palette cycles through fragment colours.
var palette = []string{"#60a5fa", "#f472b6", "#34d399", "#fbbf24", "#a78bfa", "#f87171", "#22d3ee"}

// Highlighter colours the overridable fragments of a prompt.
type Highlighter struct {
	profile termenv.Profile
	// Numbers appends each fragment id as a superscript-style tag.
	Numbers bool
}

// NewHighlighter creates a highlighter for the given profile.
// termenv.Ascii disables colour.
func NewHighlighter(profile termenv.Profile) *Highlighter {
	return &Highlighter{profile: profile}
}

// Render returns the sentence-cased prompt with every overridable fragment coloured.
func (h *Highlighter) Render(p *domain.Prompt) string {
	spans := presentation.SentenceCase(presentation.Spans(p))

	var b strings.Builder
	for _, s := range spans {
		if !s.Overridable {
			b.WriteString(s.Text)
			continue
		}
		color := palette[s.FragmentID%len(palette)]
		b.WriteString(termenv.String(s.Text).Foreground(h.profile.Color(color)).String())
		if h.Numbers {
			tag := termenv.String(fmt.Sprintf("[%d]", s.FragmentID))
			if h.profile != termenv.Ascii {
				tag = tag.Faint()
			}
			b.WriteString(tag.String())
		}
	}
	return b.String()
}
