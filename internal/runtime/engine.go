package runtime

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/aretw0/reroll/internal/logging"
	"github.com/aretw0/reroll/pkg/domain"
)

// Engine walks parsed templates and produces resolved prompts.
// Templates are never mutated, so one Engine may serve concurrent callers;
// the only shared state is the random source, which is locked.
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithRand sets the random source. Tests use a seeded source for repeatable draws.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithSeed seeds a PCG source.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a randomization engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IntN draws a uniform index in [0, n).
func (e *Engine) IntN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(n)
}

// Instantiate resolves tpl into a new Prompt according to mode.
func (e *Engine) Instantiate(tpl *domain.Template, mode Mode) *domain.Prompt {
	b := &builder{engine: e}
	if mode.prior == nil {
		return b.fresh(tpl)
	}
	return b.inherit(tpl, mode.prior)
}

// Clone returns an independent copy of p that compiles to the same text.
// Prompts loaded from storage have no Template; they are deep-copied directly.
func (e *Engine) Clone(p *domain.Prompt) *domain.Prompt {
	if p.Template == nil {
		return p.Clone()
	}
	return e.Instantiate(p.Template, Inherit(p))
}

// Override returns a clone of p in which only the choice with the given ID
// selects option. p itself is never modified.
func (e *Engine) Override(p *domain.Prompt, id, option int) (*domain.Prompt, error) {
	target := p.Find(id)
	if target == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrFragmentNotFound, id)
	}
	if !target.Overridable() {
		return nil, fmt.Errorf("%w: %d", domain.ErrFixedFragment, id)
	}
	if option < 0 || option >= len(target.Options) {
		return nil, fmt.Errorf("%w: fragment %d has %d options, got %d", domain.ErrOptionOutOfRange, id, len(target.Options), option)
	}

	out := e.Clone(p)
	out.Find(id).Selected = option

	e.logger.Debug("fragment overridden", "fragment_id", id, "from", target.Selected, "to", option)
	return out, nil
}
