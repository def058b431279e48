package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultDebounce is how long Watch waits for writes to settle before signalling.
const DefaultDebounce = 200 * time.Millisecond

// Loader implements ports.CorpusLoader over a single JSON, YAML or TOML file.
//
// The file holds a "prompts" array and a "lists" table:
//
//	prompts:
//	  - "a {#colour} {#animal}"
//	lists:
//	  colour:
//	    name: Colour
//	    options: [red, blue]
//	  animal: [cat, dog]
//
// A list may be given as a bare array of options.
type Loader struct {
	Path     string
	Debounce time.Duration
}

// NewLoader creates a loader for the corpus file at path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path, Debounce: DefaultDebounce}
}

// Load reads and decodes the file on every call.
func (l *Loader) Load(ctx context.Context) (domain.Corpus, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return Decode(data, filepath.Ext(l.Path))
}

// Decode parses a corpus document. ext selects the format (".json", ".yaml",
// ".yml" or ".toml"); an unknown extension is tried as JSON.
func Decode(data []byte, ext string) (domain.Corpus, error) {
	raw := make(map[string]any)

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return domain.Corpus{}, fmt.Errorf("invalid yaml corpus: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return domain.Corpus{}, fmt.Errorf("invalid toml corpus: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return domain.Corpus{}, fmt.Errorf("invalid json corpus: %w", err)
		}
	}

	return FromMap(raw)
}

// FromMap decodes a generic document into a corpus.
func FromMap(raw map[string]any) (domain.Corpus, error) {
	var doc struct {
		Prompts []string       `mapstructure:"prompts"`
		Lists   map[string]any `mapstructure:"lists"`
	}
	if err := decode(raw, &doc); err != nil {
		return domain.Corpus{}, fmt.Errorf("failed to decode corpus: %w", err)
	}

	corpus := domain.Corpus{
		Prompts: doc.Prompts,
		Lists:   make(domain.ListTable, len(doc.Lists)),
	}
	for id, value := range doc.Lists {
		list, err := decodeList(value)
		if err != nil {
			return domain.Corpus{}, fmt.Errorf("lists.%s: %w", id, err)
		}
		corpus.Lists[id] = list
	}
	return corpus, nil
}

func decodeList(value any) (domain.List, error) {
	var list domain.List
	switch v := value.(type) {
	case []any, []string:
		if err := decode(v, &list.Options); err != nil {
			return list, err
		}
	case map[string]any, map[any]any:
		if err := decode(v, &list); err != nil {
			return list, err
		}
	case nil:
	default:
		return list, fmt.Errorf("expected options array or table, got %T", value)
	}
	return list, nil
}

// decode lets scalar options such as numbers through as strings.
func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Watch implements ports.Watchable.
// The parent directory is watched so editors that replace the file on save
// are still seen.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	absPath, err := filepath.Abs(l.Path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	debounce := l.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		timer := time.NewTimer(debounce)
		timer.Stop()
		pending := false

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != absPath {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = true
				timer.Reset(debounce)
			case <-timer.C:
				if !pending {
					continue
				}
				pending = false
				select {
				case ch <- filepath.Base(absPath):
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return ch, nil
}
