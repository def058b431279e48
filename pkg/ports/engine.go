package ports

import (
	"context"

	"github.com/aretw0/reroll/pkg/domain"
)

// Generator is the part of the engine consumed by the history manager and
// the transport adapters.
type Generator interface {
	// Templates returns the parsed corpus.
	Templates() []*domain.Template

	// Generate instantiates a randomly chosen template with fresh draws.
	Generate(ctx context.Context) (*domain.Prompt, error)

	// Reroll instantiates the template behind p again with fresh draws.
	Reroll(ctx context.Context, p *domain.Prompt) (*domain.Prompt, error)

	// Inherit clones p against the current template set.
	Inherit(ctx context.Context, p *domain.Prompt) (*domain.Prompt, error)

	// Override clones p with one fragment set to option.
	Override(ctx context.Context, p *domain.Prompt, fragmentID, option int) (*domain.Prompt, error)

	// Compile renders p to text.
	Compile(p *domain.Prompt) string
}
