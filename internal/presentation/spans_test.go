package presentation

import (
	"strings"
	"testing"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/runtime"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantiate(t *testing.T, src string, lists domain.ListTable) *domain.Prompt {
	t.Helper()
	tpl := compiler.NewParser(lists.Lookup).Parse(src)
	return runtime.NewEngine(runtime.WithSeed(1)).Instantiate(tpl, runtime.Fresh())
}

func TestSpans_ConcatenateToCompiledText(t *testing.T) {
	lists := domain.ListTable{"colour": {Options: []string{"red", "{light|dark} blue"}}}
	for i := 0; i < 20; i++ {
		p := instantiate(t, "a {#colour} {cat|dog}{?!}", lists)

		var b strings.Builder
		for _, s := range Spans(p) {
			b.WriteString(s.Text)
		}
		assert.Equal(t, compiler.Compile(p), b.String())
	}
}

func TestSpans_Attribution(t *testing.T) {
	p := instantiate(t, "a {only} {x|y}", nil)
	spans := Spans(p)
	require.Len(t, spans, 4)

	assert.Equal(t, Span{Text: "a ", FragmentID: NoFragment}, spans[0])
	assert.Equal(t, 0, spans[1].FragmentID)
	assert.False(t, spans[1].Overridable, "single option fragments are inert")
	assert.Equal(t, NoFragment, spans[2].FragmentID)
	assert.Equal(t, 1, spans[3].FragmentID)
	assert.True(t, spans[3].Overridable)
}

func TestSentenceCase(t *testing.T) {
	spans := SentenceCase([]Span{{Text: ""}, {Text: "élan vital"}, {Text: "rest"}})
	assert.Equal(t, "Élan vital", spans[1].Text)
	assert.Equal(t, "rest", spans[2].Text)

	assert.Equal(t, "", Sentence(""))
	assert.Equal(t, "{NOT FOUND x}", Sentence("{NOT FOUND x}"))
	assert.Equal(t, "Already", Sentence("already"))
}

func TestSortedAlternatives(t *testing.T) {
	p := instantiate(t, "{banana|Cherry|apple}", nil)
	c := p.Find(0)
	require.NotNil(t, c)

	alts := SortedAlternatives(c)
	require.Len(t, alts, 3)
	assert.Equal(t, []string{"Cherry", "apple", "banana"}, []string{alts[0].Text, alts[1].Text, alts[2].Text}, "upper case sorts first")
	assert.Equal(t, 1, alts[0].Index)
	assert.Equal(t, 2, alts[1].Index)

	selected := 0
	for _, a := range alts {
		if a.Selected {
			selected++
			assert.Equal(t, c.Selected, a.Index)
		}
	}
	assert.Equal(t, 1, selected)
}

func TestFragments(t *testing.T) {
	lists := domain.ListTable{
		"colour": {Name: "Colour", Options: []string{"red", "blue"}},
		"animal": {Options: []string{"cat", "dog"}},
	}
	p := instantiate(t, "{#colour} {#animal} {only} {big|small}", lists)

	frags := Fragments(p)
	require.Len(t, frags, 3)
	assert.Equal(t, "Colour", frags[0].Name)
	assert.Equal(t, "animal", frags[1].Name, "unnamed lists fall back to their id")
	assert.Contains(t, []string{"big", "small"}, frags[2].Name, "inline fragments fall back to their text")
	assert.Len(t, frags[2].Alternatives, 2)
}
