package compiler

import (
	"strings"

	"github.com/aretw0/reroll/pkg/domain"
)

// Compile flattens a prompt into its text: literals verbatim, and for each
// choice only the compiled text of its selected option.
// It has no side effects, so compiling the same prompt twice yields the same string.
func Compile(p *domain.Prompt) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	write(&b, p)
	return b.String()
}

func write(b *strings.Builder, p *domain.Prompt) {
	for _, part := range p.Parts {
		if part.Choice == nil {
			b.WriteString(part.Text)
			continue
		}
		write(b, part.Choice.Active())
	}
}
