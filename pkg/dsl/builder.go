package dsl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/reroll/pkg/adapters/memory"
	"github.com/aretw0/reroll/pkg/domain"
)

// ErrInvalidListID is returned for list ids the template grammar cannot reference.
var ErrInvalidListID = errors.New("invalid list id")

// Builder collects prompts and lists.
type Builder struct {
	prompts []string
	lists   domain.ListTable
	order   []string
}

// New creates an empty corpus builder.
func New() *Builder {
	return &Builder{lists: make(domain.ListTable)}
}

// Prompt appends one or more templates.
func (b *Builder) Prompt(templates ...string) *Builder {
	b.prompts = append(b.prompts, templates...)
	return b
}

// List adds options to the list id, creating it when needed.
func (b *Builder) List(id string, options ...string) *Builder {
	return b.Named(id, "").Options(options...).builder
}

// Named returns the list id for further configuration, creating it when
// needed. A non-empty name becomes the list's display name.
func (b *Builder) Named(id, name string) *ListBuilder {
	list, ok := b.lists[id]
	if !ok {
		b.order = append(b.order, id)
	}
	if name != "" {
		list.Name = name
	}
	b.lists[id] = list
	return &ListBuilder{id: id, builder: b}
}

// Corpus returns the corpus built so far.
func (b *Builder) Corpus() (domain.Corpus, error) {
	for _, id := range b.order {
		if err := checkID(id); err != nil {
			return domain.Corpus{}, err
		}
	}
	out := domain.Corpus{
		Prompts: append([]string(nil), b.prompts...),
		Lists:   make(domain.ListTable, len(b.lists)),
	}
	for id, l := range b.lists {
		out.Lists[id] = domain.List{Name: l.Name, Options: append([]string(nil), l.Options...)}
	}
	return out, nil
}

// Build compiles the corpus into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	corpus, err := b.Corpus()
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus: %w", err)
	}
	return memory.NewLoader(corpus), nil
}

// checkID rejects ids that would end a {#id} reference early.
func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidListID)
	}
	if strings.ContainsAny(id, "{}|") {
		return fmt.Errorf("%w: %q contains a brace or pipe", ErrInvalidListID, id)
	}
	return nil
}

// ListBuilder configures one list.
type ListBuilder struct {
	id      string
	builder *Builder
}

// Options appends options to the list.
func (l *ListBuilder) Options(options ...string) *ListBuilder {
	list := l.builder.lists[l.id]
	list.Options = append(list.Options, options...)
	l.builder.lists[l.id] = list
	return l
}

// Prompt returns to the corpus builder and appends templates.
func (l *ListBuilder) Prompt(templates ...string) *Builder {
	return l.builder.Prompt(templates...)
}

// List returns to the corpus builder and adds another list.
func (l *ListBuilder) List(id string, options ...string) *Builder {
	return l.builder.List(id, options...)
}

// Named returns to the corpus builder and configures another list.
func (l *ListBuilder) Named(id, name string) *ListBuilder {
	return l.builder.Named(id, name)
}

// Corpus finishes the corpus and returns a copy of it.
func (l *ListBuilder) Corpus() (domain.Corpus, error) {
	return l.builder.Corpus()
}

// Build finishes the corpus.
func (l *ListBuilder) Build() (*memory.Loader, error) {
	return l.builder.Build()
}
