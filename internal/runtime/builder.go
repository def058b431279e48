package runtime

import "github.com/aretw0/reroll/pkg/domain"

// builder assigns choice IDs in pre-order while it walks one template.
type builder struct {
	engine *Engine
	next   int
}

func (b *builder) newChoice(alt *domain.Alternation) *domain.Choice {
	c := &domain.Choice{
		ID:      b.next,
		Name:    alt.Name,
		ListID:  alt.ListID,
		Options: make([]*domain.Prompt, len(alt.Options)),
	}
	b.next++
	return c
}

// fresh materializes every option of every alternation, each with its own
// independent draw, so a later override can switch to a branch that already
// holds concrete text.
func (b *builder) fresh(t *domain.Template) *domain.Prompt {
	p := &domain.Prompt{
		Template: t,
		Source:   t.Source,
		Parts:    make([]*domain.Part, len(t.Nodes)),
	}
	for i, node := range t.Nodes {
		switch n := node.(type) {
		case *domain.Literal:
			p.Parts[i] = &domain.Part{Text: n.Text}
		case *domain.Alternation:
			c := b.newChoice(n)
			c.Selected = b.engine.IntN(len(n.Options))
			for j, opt := range n.Options {
				c.Options[j] = b.fresh(opt)
			}
			p.Parts[i] = &domain.Part{Choice: c}
		}
	}
	return p
}

// inherit copies the selections of prior onto t. When prior was built from
// t (or an identical parse) the walk is positional; when the list table
// changed in between, options are matched by their source text instead, and
// anything that cannot be matched is drawn fresh.
func (b *builder) inherit(t *domain.Template, prior *domain.Prompt) *domain.Prompt {
	if prior == nil || !aligned(t, prior) {
		return b.fresh(t)
	}

	p := &domain.Prompt{
		Template: t,
		Source:   t.Source,
		Parts:    make([]*domain.Part, len(t.Nodes)),
	}
	for i, node := range t.Nodes {
		switch n := node.(type) {
		case *domain.Literal:
			p.Parts[i] = &domain.Part{Text: n.Text}
		case *domain.Alternation:
			p.Parts[i] = &domain.Part{Choice: b.inheritChoice(n, prior.Parts[i].Choice)}
		}
	}
	return p
}

func (b *builder) inheritChoice(alt *domain.Alternation, prior *domain.Choice) *domain.Choice {
	c := b.newChoice(alt)

	if sameOptions(alt, prior) {
		c.Selected = prior.Selected
		if c.Selected < 0 || c.Selected >= len(alt.Options) {
			c.Selected = b.engine.IntN(len(alt.Options))
		}
		for j, opt := range alt.Options {
			c.Options[j] = b.inherit(opt, prior.Options[j])
		}
		return c
	}

	// Value identity: find each option's counterpart by source text.
	bySource := make(map[string]*domain.Prompt, len(prior.Options))
	for _, opt := range prior.Options {
		if _, dup := bySource[opt.Source]; !dup {
			bySource[opt.Source] = opt
		}
	}
	selected := -1
	active := ""
	if prior.Selected >= 0 && prior.Selected < len(prior.Options) {
		active = prior.Active().Source
	} else {
		selected = b.engine.IntN(len(alt.Options))
	}
	for j, opt := range alt.Options {
		if selected < 0 && opt.Source == active {
			selected = j
		}
		c.Options[j] = b.inherit(opt, bySource[opt.Source])
	}
	if selected < 0 {
		selected = b.engine.IntN(len(alt.Options))
	}
	c.Selected = selected
	return c
}

// aligned reports whether prior has the same node kinds as t at every position.
func aligned(t *domain.Template, prior *domain.Prompt) bool {
	if len(t.Nodes) != len(prior.Parts) {
		return false
	}
	for i, node := range t.Nodes {
		_, isAlt := node.(*domain.Alternation)
		if isAlt == prior.Parts[i].IsLiteral() {
			return false
		}
	}
	return true
}

func sameOptions(alt *domain.Alternation, prior *domain.Choice) bool {
	if len(alt.Options) != len(prior.Options) {
		return false
	}
	for j, opt := range alt.Options {
		if opt.Source != prior.Options[j].Source {
			return false
		}
	}
	return true
}
