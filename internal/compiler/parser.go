package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/reroll/pkg/domain"
)

// DefaultMaxDepth bounds how deeply list references may expand into each other.
const DefaultMaxDepth = 32

// ListResolver looks up a list by identifier at parse time.
type ListResolver func(id string) (domain.List, bool)

// DiagnosticKind classifies a recovered grammar problem.
type DiagnosticKind string

const (
	DiagUnresolved DiagnosticKind = "unresolved_list"
	DiagEmptyList  DiagnosticKind = "empty_list"
	DiagCycle      DiagnosticKind = "list_cycle"
	DiagTooDeep    DiagnosticKind = "too_deep"
	DiagUnclosed   DiagnosticKind = "unclosed_brace"
	DiagStrayClose DiagnosticKind = "stray_close_brace"
)

// Diagnostic describes a problem the parser recovered from.
// Parsing never fails; diagnostics are the only trace of malformed input.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Source string         `json:"source"`
	Offset int            `json:"offset"`
	ListID string         `json:"list_id,omitempty"`
}

func (d Diagnostic) String() string {
	if d.ListID != "" {
		return fmt.Sprintf("%s %q in %q", d.Kind, d.ListID, d.Source)
	}
	return fmt.Sprintf("%s at offset %d in %q", d.Kind, d.Offset, d.Source)
}

// Parser turns template strings into immutable domain.Template trees.
// A Parser memoizes list expansions and collects diagnostics, so it is not
// safe for concurrent use; the templates it returns are.
type Parser struct {
	resolve  ListResolver
	maxDepth int

	lists map[string]memo
	diags []Diagnostic
	cuts  int
}

// memo is a clean list expansion and the diagnostics it produced, replayed
// whenever the expansion is reused.
type memo struct {
	alt   *domain.Alternation
	diags []Diagnostic
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth caps nested list expansion.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// NewParser creates a parser resolving {#id} references through resolve.
// A nil resolver treats every reference as unresolved.
func NewParser(resolve ListResolver, opts ...Option) *Parser {
	if resolve == nil {
		resolve = func(string) (domain.List, bool) { return domain.List{}, false }
	}
	p := &Parser{
		resolve:  resolve,
		maxDepth: DefaultMaxDepth,
		lists:    make(map[string]memo),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse compiles src into a Template. It never fails: unresolved lists become
// visible placeholders and an unmatched '{' is closed at end of input.
func (p *Parser) Parse(src string) *domain.Template {
	return p.parse(src, nil)
}

// ParseAll parses every source in order.
func (p *Parser) ParseAll(srcs []string) []*domain.Template {
	out := make([]*domain.Template, len(srcs))
	for i, src := range srcs {
		out[i] = p.Parse(src)
	}
	return out
}

// Diagnostics returns every problem recovered from so far. A list reused
// from the memo reports its problems again for each template reaching it.
func (p *Parser) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(p.diags))
	copy(out, p.diags)
	return out
}

// cursor walks one source string. The delimiters are ASCII, so byte
// indexing never splits a multi-byte rune.
type cursor struct {
	src   string
	pos   int
	stack []string // list ids currently being expanded
}

func (c *cursor) eof() bool  { return c.pos >= len(c.src) }
func (c *cursor) peek() byte { return c.src[c.pos] }

func (p *Parser) parse(src string, stack []string) *domain.Template {
	c := &cursor{src: src, stack: stack}
	nodes, _ := p.parseSequence(c, false)
	return &domain.Template{Source: src, Nodes: nodes}
}

func (p *Parser) note(c *cursor, kind DiagnosticKind, listID string) {
	p.diags = append(p.diags, Diagnostic{Kind: kind, Source: c.src, Offset: c.pos, ListID: listID})
}

// parseSequence reads literals and groups until a terminator.
// Inside a group the terminators are '|' and '}', and the consumed terminator
// is returned; 0 means end of input.
func (p *Parser) parseSequence(c *cursor, inner bool) ([]domain.Node, byte) {
	var nodes []domain.Node
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			nodes = append(nodes, &domain.Literal{Text: lit.String()})
			lit.Reset()
		}
	}

	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == '{':
			flush()
			c.pos++
			nodes = append(nodes, p.parseGroup(c))
		case ch == '}' && inner, ch == '|' && inner:
			flush()
			c.pos++
			return nodes, ch
		case ch == '}':
			// '}' can never be literal text; drop it and keep going.
			p.note(c, DiagStrayClose, "")
			c.pos++
		default:
			lit.WriteByte(ch)
			c.pos++
		}
	}

	flush()
	if inner {
		p.note(c, DiagUnclosed, "")
	}
	return nodes, 0
}

// parseGroup parses the body of a '{' whose opening brace is already consumed.
func (p *Parser) parseGroup(c *cursor) domain.Node {
	if !c.eof() && c.peek() == '?' {
		c.pos++
		start := c.pos
		segments, term := p.parseSegments(c)
		end := c.pos
		if term != 0 {
			end--
		}
		body := joinSegments(segments, c.src[start:end])
		return &domain.Alternation{Options: []*domain.Template{{}, body}}
	}

	start := c.pos
	if !c.eof() && c.peek() == '#' {
		node, term := p.parseListRef(c)
		if term != '|' {
			return node
		}
		// {#id|more...}: the reference is one alternative among others.
		first := &domain.Template{Source: c.src[start : c.pos-1], Nodes: []domain.Node{node}}
		rest, _ := p.parseSegments(c)
		return &domain.Alternation{Options: append([]*domain.Template{first}, rest...)}
	}

	segments, _ := p.parseSegments(c)
	return &domain.Alternation{Options: segments}
}

// parseSegments reads '|'-separated templates up to and including the closing '}'.
// The returned terminator is '}' or 0 at end of input.
func (p *Parser) parseSegments(c *cursor) ([]*domain.Template, byte) {
	var segments []*domain.Template
	for {
		start := c.pos
		var nodes []domain.Node
		var term byte
		if !c.eof() && c.peek() == '#' {
			var node domain.Node
			node, term = p.parseListRef(c)
			nodes = []domain.Node{node}
		} else {
			nodes, term = p.parseSequence(c, true)
		}
		end := c.pos
		if term != 0 {
			end--
		}
		segments = append(segments, &domain.Template{Source: c.src[start:end], Nodes: nodes})
		if term != '|' {
			return segments, term
		}
	}
}

// parseListRef reads "#id" up to '}' or '|' and resolves it.
func (p *Parser) parseListRef(c *cursor) (domain.Node, byte) {
	c.pos++ // '#'
	start := c.pos
	for !c.eof() && c.peek() != '}' && c.peek() != '|' {
		c.pos++
	}
	id := c.src[start:c.pos]

	var term byte
	if c.eof() {
		p.note(c, DiagUnclosed, "")
	} else {
		term = c.peek()
		c.pos++
	}
	return p.resolveList(c, id), term
}

func (p *Parser) resolveList(c *cursor, id string) domain.Node {
	if m, ok := p.lists[id]; ok {
		p.diags = append(p.diags, m.diags...)
		return m.alt
	}
	for _, seen := range c.stack {
		if seen == id {
			p.note(c, DiagCycle, id)
			p.cuts++
			return &domain.Literal{Text: fmt.Sprintf("{CYCLE %s}", id)}
		}
	}
	if len(c.stack) >= p.maxDepth {
		p.note(c, DiagTooDeep, id)
		p.cuts++
		return &domain.Literal{Text: fmt.Sprintf("{TOO DEEP %s}", id)}
	}

	list, ok := p.resolve(id)
	if !ok {
		p.note(c, DiagUnresolved, id)
		return &domain.Literal{Text: fmt.Sprintf("{NOT FOUND %s}", id)}
	}
	if len(list.Options) == 0 {
		p.note(c, DiagEmptyList, id)
		return &domain.Literal{Text: fmt.Sprintf("{EMPTY %s}", id)}
	}

	cuts, noted := p.cuts, len(p.diags)
	stack := make([]string, len(c.stack), len(c.stack)+1)
	copy(stack, c.stack)
	stack = append(stack, id)

	alt := &domain.Alternation{
		Options: make([]*domain.Template, len(list.Options)),
		Name:    list.Name,
		ListID:  id,
	}
	for i, raw := range list.Options {
		alt.Options[i] = p.parse(raw, stack)
	}

	// A cut expansion depends on where it started, so only clean
	// expansions are shared.
	if p.cuts == cuts {
		p.lists[id] = memo{alt: alt, diags: append([]Diagnostic(nil), p.diags[noted:]...)}
	}
	return alt
}

// joinSegments turns the segments of an optional body into a single template.
func joinSegments(segments []*domain.Template, source string) *domain.Template {
	if len(segments) == 1 {
		return segments[0]
	}
	return &domain.Template{
		Source: source,
		Nodes:  []domain.Node{&domain.Alternation{Options: segments}},
	}
}
