package runtime

import "github.com/aretw0/reroll/pkg/domain"

// Mode selects how Instantiate resolves alternations.
type Mode struct {
	prior *domain.Prompt
}

// Fresh draws every alternation independently and uniformly.
func Fresh() Mode {
	return Mode{}
}

// Inherit mirrors the selections of prior, producing an independent prompt
// that compiles to the same text.
func Inherit(prior *domain.Prompt) Mode {
	return Mode{prior: prior}
}

// IsFresh reports whether the mode re-rolls every alternation.
func (m Mode) IsFresh() bool {
	return m.prior == nil
}
