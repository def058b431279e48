package reroll

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/presentation"
	"github.com/aretw0/reroll/internal/runtime"
	fileAdapter "github.com/aretw0/reroll/pkg/adapters/file"
	loamAdapter "github.com/aretw0/reroll/pkg/adapters/loam"
	memoryAdapter "github.com/aretw0/reroll/pkg/adapters/memory"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/ports"
)

// Engine is the high-level entry point for the reroll library.
// It owns the parsed template set and wraps the internal runtime.
// The template set is swapped atomically on Reload, so an Engine is safe
// for concurrent use.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.CorpusLoader
	maxDepth    int
	runtimeOpts []runtime.EngineOption
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string

	mu        sync.RWMutex
	lists     domain.ListTable
	templates []*domain.Template
	bySource  map[string]*domain.Template
	diags     []compiler.Diagnostic
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom CorpusLoader, bypassing the default file or Loam initialization.
func WithLoader(l ports.CorpusLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithCorpus is a shortcut for an in-memory corpus.
func WithCorpus(c domain.Corpus) Option {
	return func(e *Engine) {
		e.loader = memoryAdapter.NewLoader(c)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxDepth caps how deeply list references may expand into each other.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithSeed makes every draw repeatable.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithSeed(seed))
	}
}

// WithRand sets the random source directly.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRand(r))
	}
}

// New initializes a new reroll Engine and loads its corpus.
// By default the corpus comes from path: a directory is read as a Loam
// repository of lists, a file as a JSON, YAML or TOML corpus.
// If WithLoader or WithCorpus is provided, path can be empty.
func New(path string, opts ...Option) (*Engine, error) {
	eng := &Engine{maxDepth: compiler.DefaultMaxDepth}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = trimExt(filepath.Base(absPath))

		eng.loader, err = OpenLoader(absPath)
		if err != nil {
			return nil, err
		}
	} else if path != "" {
		eng.Name = trimExt(filepath.Base(path))
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("corpus", eng.Name)
	}

	runtimeOpts := append([]runtime.EngineOption{runtime.WithLogger(eng.logger)}, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	if err := eng.Reload(context.Background()); err != nil {
		return nil, err
	}
	return eng, nil
}

// OpenLoader picks the loader for a corpus path: a Loam repository for a
// directory, the file loader otherwise.
func OpenLoader(path string) (ports.CorpusLoader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("corpus path: %w", err)
	}
	if !info.IsDir() {
		return fileAdapter.NewLoader(absPath), nil
	}

	// The engine never writes to the corpus, so the repository is opened read-only.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return loamAdapter.New(loam.NewTypedRepository[loamAdapter.ListMetadata](repo)), nil
}

// Reload reads the corpus again and replaces the template set.
// Prompts created before the reload keep their old templates; Inherit
// carries them over to the new set.
func (e *Engine) Reload(ctx context.Context) error {
	corpus, err := e.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	parser := compiler.NewParser(corpus.Lists.Lookup, compiler.WithMaxDepth(e.maxDepth))
	templates := make([]*domain.Template, 0, len(corpus.Prompts))
	bySource := make(map[string]*domain.Template, len(corpus.Prompts))

	for _, src := range corpus.Prompts {
		seen := len(parser.Diagnostics())
		tpl := parser.Parse(src)
		templates = append(templates, tpl)
		if _, dup := bySource[src]; !dup {
			bySource[src] = tpl
		}
		e.emitParse(ctx, tpl, parser.Diagnostics()[seen:])
	}

	diags := parser.Diagnostics()
	for _, d := range diags {
		e.logger.Warn("template diagnostic", "kind", d.Kind, "template", d.Source, "list", d.ListID)
	}

	e.mu.Lock()
	e.lists = corpus.Lists
	e.templates = templates
	e.bySource = bySource
	e.diags = diags
	e.mu.Unlock()

	e.logger.Info("corpus loaded", "templates", len(templates), "lists", len(corpus.Lists), "diagnostics", len(diags))
	return nil
}

// Templates returns the parsed corpus, in load order.
func (e *Engine) Templates() []*domain.Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*domain.Template, len(e.templates))
	copy(out, e.templates)
	return out
}

// Diagnostics returns the problems recovered from during the last load.
func (e *Engine) Diagnostics() []compiler.Diagnostic {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]compiler.Diagnostic, len(e.diags))
	copy(out, e.diags)
	return out
}

// Lists returns the list table of the last load.
func (e *Engine) Lists() domain.ListTable {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lists
}

// Parse compiles an ad-hoc template against the current list table.
// It does not join the template set.
func (e *Engine) Parse(ctx context.Context, src string) (*domain.Template, []compiler.Diagnostic) {
	e.mu.RLock()
	lists := e.lists
	e.mu.RUnlock()

	parser := compiler.NewParser(lists.Lookup, compiler.WithMaxDepth(e.maxDepth))
	tpl := parser.Parse(src)
	diags := parser.Diagnostics()
	e.emitParse(ctx, tpl, diags)
	return tpl, diags
}

// Generate picks a template uniformly at random and instantiates it with fresh draws.
func (e *Engine) Generate(ctx context.Context) (*domain.Prompt, error) {
	e.mu.RLock()
	n := len(e.templates)
	e.mu.RUnlock()
	if n == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	return e.Instantiate(ctx, e.runtime.IntN(n))
}

// Instantiate draws a fresh prompt from the template at index.
func (e *Engine) Instantiate(ctx context.Context, index int) (*domain.Prompt, error) {
	e.mu.RLock()
	if index < 0 || index >= len(e.templates) {
		n := len(e.templates)
		e.mu.RUnlock()
		if n == 0 {
			return nil, domain.ErrEmptyCorpus
		}
		return nil, fmt.Errorf("%w: index %d of %d", domain.ErrTemplateNotFound, index, n)
	}
	tpl := e.templates[index]
	e.mu.RUnlock()

	p := e.runtime.Instantiate(tpl, runtime.Fresh())
	e.emitGenerate(ctx, domain.ActionGenerate, p)
	return p, nil
}

// Roll parses src against the current lists and draws one prompt from it.
// The diagnostics are those of the parse; they never prevent the roll.
func (e *Engine) Roll(ctx context.Context, src string) (*domain.Prompt, []compiler.Diagnostic, error) {
	tpl, diags := e.Parse(ctx, src)
	p := e.runtime.Instantiate(tpl, runtime.Fresh())
	e.emitGenerate(ctx, domain.ActionGenerate, p)
	return p, diags, nil
}

// Reroll instantiates the template behind p again with fresh draws.
func (e *Engine) Reroll(ctx context.Context, p *domain.Prompt) (*domain.Prompt, error) {
	tpl := e.TemplateFor(ctx, p)
	out := e.runtime.Instantiate(tpl, runtime.Fresh())
	e.emitGenerate(ctx, domain.ActionReroll, out)
	return out, nil
}

// Inherit produces an independent prompt that mirrors the selections of p,
// rebound to the current template of the same source. Options that no longer
// exist after a reload are drawn fresh.
func (e *Engine) Inherit(ctx context.Context, p *domain.Prompt) (*domain.Prompt, error) {
	tpl := e.TemplateFor(ctx, p)
	out := e.runtime.Instantiate(tpl, runtime.Inherit(p))
	e.emitGenerate(ctx, domain.ActionRevisit, out)
	return out, nil
}

// Override returns a clone of p in which only the given fragment selects option.
// p itself is never modified.
func (e *Engine) Override(ctx context.Context, p *domain.Prompt, fragmentID, option int) (*domain.Prompt, error) {
	out, err := e.runtime.Override(p, fragmentID, option)

	evt := &domain.OverrideEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventOverride},
		FragmentID: fragmentID,
		Option:     option,
		Err:        err,
	}
	if err == nil {
		evt.Text = compiler.Compile(out)
	}
	if e.hooks.OnOverride != nil {
		e.hooks.OnOverride(ctx, evt)
	}

	if err != nil {
		e.logger.Debug("override rejected", "fragment_id", fragmentID, "option", option, "err", err)
		return nil, err
	}
	return out, nil
}

// Compile renders p to text.
func (e *Engine) Compile(p *domain.Prompt) string {
	return compiler.Compile(p)
}

// Fragments lists the overridable fragments on the active path of p, each
// with its alternatives sorted by text.
func (e *Engine) Fragments(p *domain.Prompt) []presentation.Fragment {
	return presentation.Fragments(p)
}

// TemplateFor returns the template p should be rebuilt from: the current
// template with the same source, otherwise its own, or a fresh parse of its
// source when it has none.
func (e *Engine) TemplateFor(ctx context.Context, p *domain.Prompt) *domain.Template {
	e.mu.RLock()
	tpl, ok := e.bySource[p.Source]
	e.mu.RUnlock()
	if ok {
		return tpl
	}
	if p.Template != nil {
		return p.Template
	}
	tpl, _ = e.Parse(ctx, p.Source)
	return tpl
}

// Watch returns a channel that signals when the underlying corpus changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Loader returns the underlying CorpusLoader used by the engine.
func (e *Engine) Loader() ports.CorpusLoader {
	return e.loader
}

func (e *Engine) emitParse(ctx context.Context, tpl *domain.Template, diags []compiler.Diagnostic) {
	if e.hooks.OnParse == nil {
		return
	}
	var unresolved []string
	for _, d := range diags {
		if d.Kind == compiler.DiagUnresolved {
			unresolved = append(unresolved, d.ListID)
		}
	}
	e.hooks.OnParse(ctx, &domain.ParseEvent{
		EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventParse},
		Source:       tpl.Source,
		Alternations: tpl.CountAlternations(),
		Unresolved:   unresolved,
	})
}

func (e *Engine) emitGenerate(ctx context.Context, action domain.Action, p *domain.Prompt) {
	text := compiler.Compile(p)
	e.logger.Debug("prompt generated", "action", action, "template", p.Source)
	if e.hooks.OnGenerate == nil {
		return
	}
	e.hooks.OnGenerate(ctx, &domain.GenerateEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventGenerate},
		Action:    action,
		Source:    p.Source,
		Text:      text,
	})
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
