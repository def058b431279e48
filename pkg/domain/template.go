package domain

// Template is the immutable parsed form of one grammar string.
// It is created once by the parser and may be shared by any number of Prompts.
type Template struct {
	// Source is the raw text the template was parsed from.
	Source string
	Nodes  []Node
}

// Node is one element of a Template: either a *Literal or an *Alternation.
type Node interface {
	isNode()
}

// Literal is fixed text that never varies.
type Literal struct {
	Text string
}

// Alternation offers a set of mutually exclusive sub-templates.
// Exactly one option is selected per instantiation.
type Alternation struct {
	Options []*Template

	// Name is the display name of the list this alternation was built from, if any.
	Name string
	// ListID is set when the alternation comes from a {#id} reference.
	ListID string
}

func (*Literal) isNode()     {}
func (*Alternation) isNode() {}

// Overridable reports whether the alternation offers a meaningful choice.
func (a *Alternation) Overridable() bool {
	return len(a.Options) > 1
}

// CountAlternations returns the number of alternations in the full tree,
// including those nested inside every option.
func (t *Template) CountAlternations() int {
	n := 0
	for _, node := range t.Nodes {
		if alt, ok := node.(*Alternation); ok {
			n++
			for _, opt := range alt.Options {
				n += opt.CountAlternations()
			}
		}
	}
	return n
}

// IsEmpty reports whether the template renders nothing in every instantiation.
func (t *Template) IsEmpty() bool {
	for _, node := range t.Nodes {
		switch n := node.(type) {
		case *Literal:
			if n.Text != "" {
				return false
			}
		case *Alternation:
			for _, opt := range n.Options {
				if !opt.IsEmpty() {
					return false
				}
			}
		}
	}
	return true
}
