package runtime_test

import (
	"math/rand/v2"
	"testing"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/internal/runtime"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = domain.Corpus{
	Prompts: []string{
		"a {red|blue} {?very }cat",
		"{only}",
		"{#creature} {#verb} the {#place}",
		"{?{#adjective} }{#creature}{?, {probably|maybe}}",
		"plain text",
		"{{a|b}|{c|{d|e}}}",
	},
	Lists: domain.ListTable{
		"creature":  {Name: "Creature", Options: []string{"{#adjective} fox", "owl", "{small|large} {#creature2}"}},
		"creature2": {Options: []string{"bear", "moth"}},
		"adjective": {Options: []string{"quiet", "loud", "{very|rather} odd"}},
		"verb":      {Options: []string{"guards", "haunts"}},
		"place":     {Name: "Place", Options: []string{"bridge", "{old|new} mill"}},
	},
}

func parseCorpus(t *testing.T) []*domain.Template {
	t.Helper()
	return compiler.NewParser(corpus.Lists.Lookup).ParseAll(corpus.Prompts)
}

func newEngine(seed uint64) *runtime.Engine {
	return runtime.NewEngine(runtime.WithRand(rand.New(rand.NewPCG(seed, seed+1))))
}

// shape describes node kinds and child counts, ignoring selections.
type shape struct {
	Literal  bool
	Text     string
	Children [][]shape
}

func templateShape(t *domain.Template) []shape {
	out := make([]shape, len(t.Nodes))
	for i, node := range t.Nodes {
		switch n := node.(type) {
		case *domain.Literal:
			out[i] = shape{Literal: true, Text: n.Text}
		case *domain.Alternation:
			for _, opt := range n.Options {
				out[i].Children = append(out[i].Children, templateShape(opt))
			}
		}
	}
	return out
}

func promptShape(p *domain.Prompt) []shape {
	out := make([]shape, len(p.Parts))
	for i, part := range p.Parts {
		if part.IsLiteral() {
			out[i] = shape{Literal: true, Text: part.Text}
			continue
		}
		for _, opt := range part.Choice.Options {
			out[i].Children = append(out[i].Children, promptShape(opt))
		}
	}
	return out
}

func selections(p *domain.Prompt) map[int]int {
	out := make(map[int]int)
	p.WalkAll(func(c *domain.Choice) {
		out[c.ID] = c.Selected
	})
	return out
}

func TestInstantiate_GrammarExample(t *testing.T) {
	tpl := compiler.NewParser(nil).Parse("a {red|blue} {?very }cat")
	engine := newEngine(7)

	valid := map[string]bool{"a red cat": true, "a blue cat": true, "a red very cat": true, "a blue very cat": true}
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		text := compiler.Compile(engine.Instantiate(tpl, runtime.Fresh()))
		require.True(t, valid[text], "unexpected output %q", text)
		seen[text] = true
	}
	assert.Len(t, seen, 4, "every combination should show up in 200 draws")
}

func TestInstantiate_ShapeIsomorphism(t *testing.T) {
	engine := newEngine(1)
	for _, tpl := range parseCorpus(t) {
		want := templateShape(tpl)

		fresh := engine.Instantiate(tpl, runtime.Fresh())
		if diff := cmp.Diff(want, promptShape(fresh)); diff != "" {
			t.Errorf("fresh shape mismatch for %q (-template +prompt):\n%s", tpl.Source, diff)
		}

		inherited := engine.Instantiate(tpl, runtime.Inherit(fresh))
		if diff := cmp.Diff(want, promptShape(inherited)); diff != "" {
			t.Errorf("inherited shape mismatch for %q (-template +prompt):\n%s", tpl.Source, diff)
		}
	}
}

func TestInstantiate_PreOrderIDs(t *testing.T) {
	engine := newEngine(2)
	for _, tpl := range parseCorpus(t) {
		p := engine.Instantiate(tpl, runtime.Fresh())

		var ids []int
		p.WalkAll(func(c *domain.Choice) { ids = append(ids, c.ID) })

		require.Len(t, ids, tpl.CountAlternations(), tpl.Source)
		for i, id := range ids {
			assert.Equal(t, i, id, "IDs follow pre-order in %q", tpl.Source)
		}
	}
}

func TestInstantiate_MaterializesUnselectedOptions(t *testing.T) {
	tpl := compiler.NewParser(corpus.Lists.Lookup).Parse("{#place}")
	p := newEngine(3).Instantiate(tpl, runtime.Fresh())

	choice := p.Parts[0].Choice
	require.NotNil(t, choice)
	require.Len(t, choice.Options, 2)
	for _, opt := range choice.Options {
		require.NotNil(t, opt)
		assert.NotEmpty(t, compiler.Compile(opt))
	}
	assert.Equal(t, "Place", choice.Name)
	assert.Equal(t, "place", choice.ListID)
}

func TestInherit_RoundTripIdentity(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		engine := newEngine(seed)
		for _, tpl := range parseCorpus(t) {
			prior := engine.Instantiate(tpl, runtime.Fresh())
			clone := engine.Instantiate(tpl, runtime.Inherit(prior))

			assert.Equal(t, compiler.Compile(prior), compiler.Compile(clone))
			assert.Equal(t, selections(prior), selections(clone))
		}
	}
}

func TestInherit_IsDeepCopy(t *testing.T) {
	tpl := compiler.NewParser(nil).Parse("{a|b|c} {x|y}")
	engine := newEngine(4)

	prior := engine.Instantiate(tpl, runtime.Fresh())
	before := compiler.Compile(prior)

	clone := engine.Instantiate(tpl, runtime.Inherit(prior))
	clone.Find(0).Selected = (clone.Find(0).Selected + 1) % 3
	clone.Find(1).Selected = (clone.Find(1).Selected + 1) % 2

	assert.Equal(t, before, compiler.Compile(prior), "mutating a clone must not reach the prior prompt")
	assert.NotEqual(t, before, compiler.Compile(clone))
}

func TestInherit_ValueIdentityAfterListChange(t *testing.T) {
	before := domain.ListTable{"colour": {Options: []string{"red", "green", "blue"}}}
	after := domain.ListTable{"colour": {Options: []string{"violet", "blue", "green", "red"}}}

	oldTpl := compiler.NewParser(before.Lookup).Parse("the {#colour} door")
	newTpl := compiler.NewParser(after.Lookup).Parse("the {#colour} door")
	engine := newEngine(5)

	for i := 0; i < 30; i++ {
		prior := engine.Instantiate(oldTpl, runtime.Fresh())
		moved := engine.Instantiate(newTpl, runtime.Inherit(prior))

		assert.Equal(t, compiler.Compile(prior), compiler.Compile(moved))
		assert.Same(t, newTpl, moved.Template)
		assert.Len(t, moved.Parts[1].Choice.Options, 4)
	}
}

func TestInherit_UnmatchedOptionIsDrawnFresh(t *testing.T) {
	before := domain.ListTable{"colour": {Options: []string{"red"}}}
	after := domain.ListTable{"colour": {Options: []string{"blue", "green"}}}

	prior := newEngine(6).Instantiate(compiler.NewParser(before.Lookup).Parse("{#colour}"), runtime.Fresh())
	moved := newEngine(6).Instantiate(compiler.NewParser(after.Lookup).Parse("{#colour}"), runtime.Inherit(prior))

	assert.Contains(t, []string{"blue", "green"}, compiler.Compile(moved))
}

func TestInherit_MisalignedPriorFallsBackToFresh(t *testing.T) {
	engine := newEngine(8)
	prior := engine.Instantiate(compiler.NewParser(nil).Parse("{a|b} c"), runtime.Fresh())
	tpl := compiler.NewParser(nil).Parse("x {y|z}")

	p := engine.Instantiate(tpl, runtime.Inherit(prior))
	assert.Contains(t, []string{"x y", "x z"}, compiler.Compile(p))
}

func TestInherit_StoredPromptWithoutTemplate(t *testing.T) {
	tpl := compiler.NewParser(nil).Parse("{a|b} and {c|d}")
	engine := newEngine(9)
	prior := engine.Instantiate(tpl, runtime.Fresh())

	stored := prior.Clone()
	stored.Template = nil

	clone := engine.Clone(stored)
	assert.Nil(t, clone.Template)
	assert.Equal(t, compiler.Compile(prior), compiler.Compile(clone))
	assert.NotSame(t, stored.Parts[0], clone.Parts[0])
}

func TestOverride_Isolation(t *testing.T) {
	engine := newEngine(10)
	for _, tpl := range parseCorpus(t) {
		p := engine.Instantiate(tpl, runtime.Fresh())
		original := selections(p)
		text := compiler.Compile(p)

		p.WalkAll(func(c *domain.Choice) {
			if !c.Overridable() {
				return
			}
			option := (c.Selected + 1) % len(c.Options)

			out, err := engine.Override(p, c.ID, option)
			require.NoError(t, err)

			got := selections(out)
			for id, sel := range original {
				if id == c.ID {
					assert.Equal(t, option, got[id])
					continue
				}
				assert.Equal(t, sel, got[id], "fragment %d changed while overriding %d in %q", id, c.ID, tpl.Source)
			}
		})

		assert.Equal(t, original, selections(p), "override must not mutate its input")
		assert.Equal(t, text, compiler.Compile(p))
	}
}

func TestOverride_ChangesText(t *testing.T) {
	tpl := compiler.NewParser(nil).Parse("a {red|blue} cat")
	engine := newEngine(11)
	p := engine.Instantiate(tpl, runtime.Fresh())

	out, err := engine.Override(p, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "a blue cat", compiler.Compile(out))

	out, err = engine.Override(out, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "a red cat", compiler.Compile(out))
}

func TestOverride_Errors(t *testing.T) {
	engine := newEngine(12)
	p := engine.Instantiate(compiler.NewParser(nil).Parse("{only} {a|b}"), runtime.Fresh())
	before := selections(p)

	tests := []struct {
		name   string
		id     int
		option int
		want   error
	}{
		{"unknown fragment", 42, 0, domain.ErrFragmentNotFound},
		{"negative fragment", -1, 0, domain.ErrFragmentNotFound},
		{"single option", 0, 0, domain.ErrFixedFragment},
		{"option too large", 1, 2, domain.ErrOptionOutOfRange},
		{"negative option", 1, -1, domain.ErrOptionOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Override(p, tt.id, tt.option)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, out)
			assert.Equal(t, before, selections(p))
		})
	}
}

func TestSingleOptionIsInert(t *testing.T) {
	tpl := compiler.NewParser(nil).Parse("{only}")
	engine := newEngine(13)

	fresh := engine.Instantiate(tpl, runtime.Fresh())
	assert.Equal(t, "only", compiler.Compile(fresh))
	assert.Equal(t, "only", compiler.Compile(engine.Instantiate(tpl, runtime.Inherit(fresh))))

	overridable := 0
	fresh.WalkAll(func(c *domain.Choice) {
		if c.Overridable() {
			overridable++
		}
	})
	assert.Zero(t, overridable)
}

func TestCompile_Idempotent(t *testing.T) {
	engine := newEngine(14)
	for _, tpl := range parseCorpus(t) {
		p := engine.Instantiate(tpl, runtime.Fresh())
		assert.Equal(t, compiler.Compile(p), compiler.Compile(p))
	}
}

func TestMissingListCompilesToPlaceholder(t *testing.T) {
	tpl := compiler.NewParser(domain.ListTable{}.Lookup).Parse("{#missing}")
	p := newEngine(15).Instantiate(tpl, runtime.Fresh())
	assert.Equal(t, "{NOT FOUND missing}", compiler.Compile(p))
}

func TestMode(t *testing.T) {
	assert.True(t, runtime.Fresh().IsFresh())
	assert.False(t, runtime.Inherit(&domain.Prompt{}).IsFresh())
}
