package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/reroll/pkg/domain"
)

// Loader implements ports.CorpusLoader using an in-memory corpus.
type Loader struct {
	corpus domain.Corpus
}

// NewLoader creates a loader serving a copy of corpus.
func NewLoader(corpus domain.Corpus) *Loader {
	return &Loader{corpus: copyCorpus(corpus)}
}

// NewFromPrompts creates a loader from raw templates and a list table.
// Lists are given as id -> options; use NewLoader for display names.
func NewFromPrompts(prompts []string, lists map[string][]string) (*Loader, error) {
	table := make(domain.ListTable, len(lists))
	for id, options := range lists {
		if id == "" {
			return nil, fmt.Errorf("list missing ID")
		}
		table[id] = domain.List{Options: options}
	}
	return NewLoader(domain.Corpus{Prompts: prompts, Lists: table}), nil
}

// Load returns a copy of the corpus, so callers can never mutate the loader.
func (l *Loader) Load(ctx context.Context) (domain.Corpus, error) {
	return copyCorpus(l.corpus), nil
}

func copyCorpus(c domain.Corpus) domain.Corpus {
	out := domain.Corpus{
		Prompts: append([]string(nil), c.Prompts...),
		Lists:   make(domain.ListTable, len(c.Lists)),
	}
	for id, l := range c.Lists {
		out.Lists[id] = domain.List{Name: l.Name, Options: append([]string(nil), l.Options...)}
	}
	return out
}
