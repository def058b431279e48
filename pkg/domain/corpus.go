package domain

// List is a named set of raw option strings referenced from templates as {#id}.
// Every option is itself a template and is parsed recursively.
type List struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty" mapstructure:"name"`
	Options []string `json:"options" yaml:"options" toml:"options" mapstructure:"options"`
}

// DisplayName returns the list name, or its identifier when no name was given.
func (l List) DisplayName(id string) string {
	if l.Name != "" {
		return l.Name
	}
	return id
}

// ListTable maps list identifiers to lists.
type ListTable map[string]List

// Lookup returns the list registered under id.
func (t ListTable) Lookup(id string) (List, bool) {
	l, ok := t[id]
	return l, ok
}

// Corpus is the batch of raw templates plus the list table they reference.
type Corpus struct {
	Prompts []string  `json:"prompts" yaml:"prompts" toml:"prompts" mapstructure:"prompts"`
	Lists   ListTable `json:"lists" yaml:"lists" toml:"lists" mapstructure:"lists"`
}

// Merge returns a corpus holding the prompts of both and the lists of both.
// Lists in other replace lists with the same id.
func (c Corpus) Merge(other Corpus) Corpus {
	out := Corpus{
		Prompts: make([]string, 0, len(c.Prompts)+len(other.Prompts)),
		Lists:   make(ListTable, len(c.Lists)+len(other.Lists)),
	}
	out.Prompts = append(out.Prompts, c.Prompts...)
	out.Prompts = append(out.Prompts, other.Prompts...)
	for id, l := range c.Lists {
		out.Lists[id] = l
	}
	for id, l := range other.Lists {
		out.Lists[id] = l
	}
	return out
}
