package presentation

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/pkg/domain"
)

// NoFragment marks text that does not belong to any alternation.
const NoFragment = -1

// Span is a run of rendered text attributed to the innermost fragment that produced it.
type Span struct {
	Text        string `json:"text"`
	FragmentID  int    `json:"fragment_id"`
	Overridable bool   `json:"overridable"`
}

// Spans flattens the active path of p into attributed text.
// Concatenating the span texts gives the compiled prompt.
func Spans(p *domain.Prompt) []Span {
	var out []Span
	collect(p, NoFragment, false, &out)
	return out
}

func collect(p *domain.Prompt, id int, overridable bool, out *[]Span) {
	for _, part := range p.Parts {
		if part.Choice == nil {
			if part.Text != "" {
				*out = append(*out, Span{Text: part.Text, FragmentID: id, Overridable: overridable})
			}
			continue
		}
		c := part.Choice
		collect(c.Active(), c.ID, c.Overridable(), out)
	}
}

// SentenceCase upper-cases the first letter of the first non-empty span.
// The spans are modified in place and returned.
func SentenceCase(spans []Span) []Span {
	for i := range spans {
		if spans[i].Text == "" {
			continue
		}
		spans[i].Text = Sentence(spans[i].Text)
		break
	}
	return spans
}

// Sentence upper-cases the first rune of s.
func Sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Alternative is one option of a fragment with its compiled text.
type Alternative struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// SortedAlternatives lists the options of c ordered by their compiled text.
// The order is byte-wise and case-sensitive; Index keeps the option index
// an override needs.
func SortedAlternatives(c *domain.Choice) []Alternative {
	out := make([]Alternative, len(c.Options))
	for i, opt := range c.Options {
		out[i] = Alternative{Index: i, Text: compiler.Compile(opt), Selected: i == c.Selected}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Text < out[j].Text
	})
	return out
}

// Fragment describes one overridable choice on the active path.
type Fragment struct {
	ID           int           `json:"id"`
	Name         string        `json:"name"`
	Text         string        `json:"text"`
	Alternatives []Alternative `json:"alternatives"`
}

// Fragments lists the overridable choices on the active path in rendering order.
// Name falls back to the list id, then to the fragment's current text.
func Fragments(p *domain.Prompt) []Fragment {
	var out []Fragment
	p.Walk(func(c *domain.Choice) {
		if !c.Overridable() {
			return
		}
		text := compiler.Compile(c.Active())
		name := c.Name
		if name == "" {
			name = c.ListID
		}
		if name == "" {
			name = strings.TrimSpace(text)
		}
		out = append(out, Fragment{
			ID:           c.ID,
			Name:         name,
			Text:         text,
			Alternatives: SortedAlternatives(c),
		})
	})
	return out
}
