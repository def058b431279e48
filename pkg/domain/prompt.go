package domain

// Prompt is a resolved instance of a Template.
// Its Parts mirror the Template's Nodes one for one; the only thing that varies
// between Prompts of the same Template is the Selected index of each Choice.
type Prompt struct {
	// Template is the tree this prompt was instantiated from.
	// It is not persisted; prompts loaded from a store carry only Source.
	Template *Template `json:"-"`

	Source string  `json:"source"`
	Parts  []*Part `json:"parts"`
}

// Part is the instance side of a Node. Exactly one of Text or Choice is meaningful:
// a nil Choice marks a literal.
type Part struct {
	Text   string  `json:"text,omitempty"`
	Choice *Choice `json:"choice,omitempty"`
}

// Choice is the instance side of an Alternation.
// Every option is materialized, selected or not, so a later override
// can switch branches without generating new text.
type Choice struct {
	// ID is the pre-order index of this alternation across the full tree.
	// It depends only on the Template shape, so it is stable across clones.
	ID       int       `json:"id"`
	Name     string    `json:"name,omitempty"`
	ListID   string    `json:"list_id,omitempty"`
	Selected int       `json:"selected"`
	Options  []*Prompt `json:"options"`
}

// IsLiteral reports whether the part is fixed text.
func (p *Part) IsLiteral() bool {
	return p.Choice == nil
}

// Active returns the currently selected option.
func (c *Choice) Active() *Prompt {
	return c.Options[c.Selected]
}

// Overridable reports whether the choice offers more than one option.
func (c *Choice) Overridable() bool {
	return len(c.Options) > 1
}

// Clone returns a deep copy of the prompt. The Template pointer is shared
// because templates are immutable.
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}
	out := &Prompt{
		Template: p.Template,
		Source:   p.Source,
		Parts:    make([]*Part, len(p.Parts)),
	}
	for i, part := range p.Parts {
		out.Parts[i] = part.clone()
	}
	return out
}

func (p *Part) clone() *Part {
	if p.Choice == nil {
		return &Part{Text: p.Text}
	}
	c := p.Choice
	choice := &Choice{
		ID:       c.ID,
		Name:     c.Name,
		ListID:   c.ListID,
		Selected: c.Selected,
		Options:  make([]*Prompt, len(c.Options)),
	}
	for i, opt := range c.Options {
		choice.Options[i] = opt.Clone()
	}
	return &Part{Choice: choice}
}

// Find returns the choice with the given ID anywhere in the tree,
// including unselected branches.
func (p *Prompt) Find(id int) *Choice {
	for _, part := range p.Parts {
		if part.Choice == nil {
			continue
		}
		if part.Choice.ID == id {
			return part.Choice
		}
		// IDs are assigned in pre-order, so a subtree can only hold larger IDs.
		if part.Choice.ID > id {
			return nil
		}
		for _, opt := range part.Choice.Options {
			if found := opt.Find(id); found != nil {
				return found
			}
		}
	}
	return nil
}

// Walk visits every choice on the active path in rendering order.
func (p *Prompt) Walk(fn func(*Choice)) {
	for _, part := range p.Parts {
		if part.Choice == nil {
			continue
		}
		fn(part.Choice)
		part.Choice.Active().Walk(fn)
	}
}

// WalkAll visits every choice in the tree, selected or not, in pre-order.
func (p *Prompt) WalkAll(fn func(*Choice)) {
	for _, part := range p.Parts {
		if part.Choice == nil {
			continue
		}
		fn(part.Choice)
		for _, opt := range part.Choice.Options {
			opt.WalkAll(fn)
		}
	}
}
