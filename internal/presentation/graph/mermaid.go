package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/pkg/domain"
)

// maxLabel truncates option labels so wide lists stay readable.
const maxLabel = 40

// Overlay marks fragments to highlight on the graph.
type Overlay struct {
	// Fragment is the fragment under inspection, or -1 for none.
	Fragment int
}

// GenerateMermaid produces a Mermaid flowchart of the fragment tree of p.
// It applies semantic styling:
// - Root: ((Circle)) labelled with the template source
// - Fragment: {{Hexagon}} labelled with its id and list name
// - Fixed fragment (single option): [[Subroutine]]
// - Option: [Rectangle] labelled with its compiled text
// Options on the active path are drawn with solid edges, the rest dotted.
func GenerateMermaid(p *domain.Prompt, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    root((\"%s\"))\n", escape(truncate(p.Source))))

	var selected []string
	writeParts(&sb, "root", p, true, &selected)

	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef selected fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
	for _, id := range selected {
		sb.WriteString(fmt.Sprintf("    class %s selected;\n", id))
	}
	if overlay != nil && overlay.Fragment >= 0 && p.Find(overlay.Fragment) != nil {
		sb.WriteString(fmt.Sprintf("    class %s current;\n", fragmentID(overlay.Fragment)))
	}

	return sb.String()
}

func writeParts(sb *strings.Builder, parent string, p *domain.Prompt, active bool, selected *[]string) {
	for _, part := range p.Parts {
		if part.Choice == nil {
			continue
		}
		c := part.Choice
		id := fragmentID(c.ID)

		label := fmt.Sprintf("#%d", c.ID)
		if c.Name != "" {
			label += " " + c.Name
		} else if c.ListID != "" {
			label += " " + c.ListID
		}
		opener, closer := "{{", "}}"
		if !c.Overridable() {
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, escape(label), closer))
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", parent, arrow(active), id))

		for j, opt := range c.Options {
			optID := fmt.Sprintf("%s_%d", id, j)
			onPath := active && j == c.Selected
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", optID, escape(truncate(compiler.Compile(opt)))))
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", id, arrow(onPath), optID))
			if onPath {
				*selected = append(*selected, optID)
			}
			writeParts(sb, optID, opt, onPath, selected)
		}
	}
}

func arrow(active bool) string {
	if active {
		return "-->"
	}
	return "-.->"
}

func fragmentID(id int) string {
	return fmt.Sprintf("f%d", id)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLabel {
		return s
	}
	return string(r[:maxLabel-1]) + "…"
}

// escape keeps labels inside their double quotes.
func escape(s string) string {
	if s == "" {
		return " "
	}
	return strings.ReplaceAll(s, "\"", "'")
}
