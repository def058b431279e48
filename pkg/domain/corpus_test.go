package domain_test

import (
	"testing"

	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCorpus_Merge(t *testing.T) {
	base := domain.Corpus{
		Prompts: []string{"{#a}"},
		Lists:   domain.ListTable{"a": {Options: []string{"old"}}, "b": {Options: []string{"b"}}},
	}
	over := domain.Corpus{
		Prompts: []string{"{#b}"},
		Lists:   domain.ListTable{"a": {Name: "A", Options: []string{"new"}}},
	}

	got := base.Merge(over)
	assert.Equal(t, []string{"{#a}", "{#b}"}, got.Prompts)
	assert.Equal(t, domain.List{Name: "A", Options: []string{"new"}}, got.Lists["a"])
	assert.Equal(t, []string{"b"}, got.Lists["b"].Options)

	got.Lists["b"] = domain.List{}
	assert.Equal(t, []string{"b"}, base.Lists["b"].Options, "merge does not alias its inputs' tables")
}

func TestList_DisplayName(t *testing.T) {
	assert.Equal(t, "Colour", domain.List{Name: "Colour"}.DisplayName("colour"))
	assert.Equal(t, "colour", domain.List{}.DisplayName("colour"))
}

func TestListTable_Lookup(t *testing.T) {
	table := domain.ListTable{"x": {Options: []string{"1"}}}
	_, ok := table.Lookup("x")
	assert.True(t, ok)
	_, ok = table.Lookup("y")
	assert.False(t, ok)
}
