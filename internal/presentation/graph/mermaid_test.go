package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/presentation/graph"
	"github.com/aretw0/reroll/internal/runtime"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prompt(t *testing.T, src string, lists domain.ListTable) *domain.Prompt {
	t.Helper()
	tpl := compiler.NewParser(lists.Lookup).Parse(src)
	return runtime.NewEngine(runtime.WithSeed(3)).Instantiate(tpl, runtime.Fresh())
}

func TestGenerateMermaid(t *testing.T) {
	lists := domain.ListTable{"colour": {Name: "Colour", Options: []string{"red", "blue"}}}

	tests := []struct {
		name     string
		src      string
		contains []string
	}{
		{
			name:     "Root Shape",
			src:      "plain",
			contains: []string{"graph TD", "root((\"plain\"))"},
		},
		{
			name:     "Fragment Shape",
			src:      "{a|b}",
			contains: []string{"f0{{\"#0\"}}", "root --> f0", "f0_0[\"a\"]", "f0_1[\"b\"]"},
		},
		{
			name:     "Fixed Fragment Shape",
			src:      "{only}",
			contains: []string{"f0[[\"#0\"]]", "f0 --> f0_0", "class f0_0 selected;"},
		},
		{
			name:     "List Name",
			src:      "{#colour}",
			contains: []string{"f0{{\"#0 Colour\"}}"},
		},
		{
			name:     "Quotes Are Escaped",
			src:      `{say "hi"|x}`,
			contains: []string{`f0_0["say 'hi'"]`},
		},
		{
			name:     "Empty Option",
			src:      "{?x}",
			contains: []string{`f0_0[" "]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(prompt(t, tt.src, lists), nil)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestGenerateMermaid_ActivePath(t *testing.T) {
	p := prompt(t, "{a {x|y}|b {z|w}}", nil)
	got := graph.GenerateMermaid(p, &graph.Overlay{Fragment: 0})

	root := p.Find(0)
	require.NotNil(t, root)
	// Only the selected branch's nested fragment hangs off a solid edge.
	solid := strings.Count(got, " --> ")
	dotted := strings.Count(got, " -.-> ")
	assert.Equal(t, 4, solid, "root->f0, f0->selected, selected->nested, nested->its selection")
	assert.Equal(t, 5, dotted, "f0->other, other->its fragment, that fragment->both options, selected fragment->its other option")
	assert.Contains(t, got, "class f0 current;")
}

func TestGenerateMermaid_UnknownOverlayIgnored(t *testing.T) {
	got := graph.GenerateMermaid(prompt(t, "{a|b}", nil), &graph.Overlay{Fragment: 99})
	assert.NotContains(t, got, "current;")
}
