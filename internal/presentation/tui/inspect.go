package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/pkg/domain"
)

// InspectMarkdown describes a prompt as markdown: the compiled sentence,
// then one section per overridable fragment with its sorted alternatives.
func InspectMarkdown(p *domain.Prompt) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", presentation.Sentence(compiler.Compile(p)))
	fmt.Fprintf(&b, "Template: `%s`\n\n", p.Source)

	frags := presentation.Fragments(p)
	if len(frags) == 0 {
		b.WriteString("_No fragments can be overridden._\n")
		return b.String()
	}

	for _, f := range frags {
		fmt.Fprintf(&b, "## %d. %s\n\n", f.ID, f.Name)
		for _, alt := range f.Alternatives {
			text := alt.Text
			if text == "" {
				text = "_(empty)_"
			}
			if alt.Selected {
				fmt.Fprintf(&b, "- **%d: %s**\n", alt.Index, text)
			} else {
				fmt.Fprintf(&b, "- %d: %s\n", alt.Index, text)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// TemplateMarkdown summarizes a parsed template as markdown.
func TemplateMarkdown(index int, t *domain.Template) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Template %d\n\n", index)
	fmt.Fprintf(&b, "```\n%s\n```\n\n", t.Source)
	fmt.Fprintf(&b, "- Alternations: %d\n", t.CountAlternations())
	var lists []string
	collectLists(t, map[*domain.Alternation]bool{}, &lists)
	if len(lists) > 0 {
		fmt.Fprintf(&b, "- Lists: %s\n", strings.Join(lists, ", "))
	}
	return b.String()
}

func collectLists(t *domain.Template, seen map[*domain.Alternation]bool, out *[]string) {
	for _, node := range t.Nodes {
		alt, ok := node.(*domain.Alternation)
		if !ok || seen[alt] {
			continue
		}
		seen[alt] = true
		if alt.ListID != "" {
			*out = append(*out, "`"+alt.ListID+"`")
		}
		for _, opt := range alt.Options {
			collectLists(opt, seen, out)
		}
	}
}
