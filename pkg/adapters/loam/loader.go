package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/reroll/pkg/domain"
)

// PromptsDocument is the id of the document whose body lines are templates
// rather than list options.
const PromptsDocument = "prompts"

// Loader adapts the Loam library to the reroll CorpusLoader interface.
// Every document in the repository is a list, identified by its path
// without extension:
//
//	---
//	name: Colour
//	options: [red]
//	---
//	{light|dark} blue
//	green
type Loader struct {
	Repo *loam.TypedRepository[ListMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ListMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Load implements ports.CorpusLoader. List results carry metadata only, so
// each document is fetched again for its body.
func (l *Loader) Load(ctx context.Context) (domain.Corpus, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("loam list failed: %w", err)
	}

	corpus := domain.Corpus{Lists: make(domain.ListTable, len(docs))}
	seen := make(map[string]string)

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		// Collision Detection
		if existingPath, ok := seen[id]; ok {
			return domain.Corpus{}, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		full, err := l.Repo.Get(ctx, trimExtension(doc.ID))
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("loam get failed for %s: %w", doc.ID, err)
		}
		doc = full

		corpus.Prompts = append(corpus.Prompts, doc.Data.Prompts...)

		lines := bodyLines(doc.Content)
		if id == PromptsDocument {
			corpus.Prompts = append(corpus.Prompts, lines...)
			continue
		}

		options := make([]string, 0, len(doc.Data.Options)+len(lines))
		options = append(options, doc.Data.Options...)
		options = append(options, lines...)
		corpus.Lists[id] = domain.List{Name: doc.Data.Name, Options: options}
	}

	return corpus, nil
}

// bodyLines returns the non-blank lines of a document body, trimmed.
// Lines starting with "//" are comments.
func bodyLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces on its side; pass the changed ID up.
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
