package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/internal/runtime"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func prompt(src string, lists domain.ListTable) *domain.Prompt {
	tpl := compiler.NewParser(lists.Lookup).Parse(src)
	return runtime.NewEngine(runtime.WithSeed(5)).Instantiate(tpl, runtime.Fresh())
}

func TestHighlighter_AsciiIsPlainSentence(t *testing.T) {
	p := prompt("a {red|blue} cat", nil)
	got := NewHighlighter(termenv.Ascii).Render(p)
	assert.Equal(t, presentation.Sentence(compiler.Compile(p)), got)
}

func TestHighlighter_Numbers(t *testing.T) {
	h := NewHighlighter(termenv.Ascii)
	h.Numbers = true
	got := h.Render(prompt("a {red|blue} {only}", nil))
	assert.Contains(t, got, "[0]")
	assert.NotContains(t, got, "[1]", "inert fragments are not numbered")
}

func TestHighlighter_Colour(t *testing.T) {
	got := NewHighlighter(termenv.TrueColor).Render(prompt("{red|blue}", nil))
	assert.Contains(t, got, "\x1b[")
}

func TestInspectMarkdown(t *testing.T) {
	lists := domain.ListTable{"colour": {Name: "Colour", Options: []string{"red", "blue"}}}
	md := InspectMarkdown(prompt("a {#colour} cat{?!}", lists))

	assert.True(t, strings.HasPrefix(md, "# A "))
	assert.Contains(t, md, "## 0. Colour")
	assert.Contains(t, md, "_(empty)_")
	assert.Contains(t, md, "1: blue")
	assert.Equal(t, 2, strings.Count(md, "- **"), "exactly one selected alternative per fragment is bolded")
}

func TestInspectMarkdown_NoFragments(t *testing.T) {
	assert.Contains(t, InspectMarkdown(prompt("fixed", nil)), "No fragments")
}

func TestTemplateMarkdown(t *testing.T) {
	lists := domain.ListTable{"colour": {Options: []string{"red", "blue"}}}
	tpl := compiler.NewParser(lists.Lookup).Parse("{#colour} and {#colour}")
	md := TemplateMarkdown(2, tpl)
	assert.Contains(t, md, "## Template 2")
	assert.Contains(t, md, "- Alternations: 2")
	assert.Equal(t, 1, strings.Count(md, "`colour`"), "memoized lists are listed once")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
