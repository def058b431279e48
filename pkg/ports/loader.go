package ports

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/reroll/pkg/domain"
)

// CorpusLoader defines how the engine retrieves its templates and list table.
type CorpusLoader interface {
	// Load returns the current corpus. Implementations return a fresh value on
	// every call so a reload can pick up changes.
	Load(ctx context.Context) (domain.Corpus, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the name of whatever changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}

// MultiLoader merges several loaders in order: prompts are concatenated and
// lists from later loaders replace lists with the same id.
type MultiLoader []CorpusLoader

// Load implements CorpusLoader.
func (m MultiLoader) Load(ctx context.Context) (domain.Corpus, error) {
	out := domain.Corpus{Lists: domain.ListTable{}}
	for i, l := range m {
		c, err := l.Load(ctx)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("loader %d: %w", i, err)
		}
		out = out.Merge(c)
	}
	return out, nil
}

// Watch fans in the change events of every watchable member.
// It fails when no member can be watched.
func (m MultiLoader) Watch(ctx context.Context) (<-chan string, error) {
	var sources []<-chan string
	for i, l := range m {
		w, ok := l.(Watchable)
		if !ok {
			continue
		}
		ch, err := w.Watch(ctx)
		if err != nil {
			return nil, fmt.Errorf("loader %d: %w", i, err)
		}
		sources = append(sources, ch)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no loader supports watching")
	}

	out := make(chan string)
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src <-chan string) {
			defer wg.Done()
			for name := range src {
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}
		}(src)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}
