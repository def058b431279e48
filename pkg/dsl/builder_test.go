package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_Corpus(t *testing.T) {
	loader, err := New().
		Prompt("a {#size} {#animal}").
		List("size", "tiny", "huge").
		Named("animal", "Animal").Options("cat").Options("dog").
		Prompt("{#size} {#size}").
		Build()
	require.NoError(t, err)

	corpus, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a {#size} {#animal}", "{#size} {#size}"}, corpus.Prompts)
	assert.Equal(t, domain.ListTable{
		"size":   {Options: []string{"tiny", "huge"}},
		"animal": {Name: "Animal", Options: []string{"cat", "dog"}},
	}, corpus.Lists)
}

func TestBuilder_ListAppends(t *testing.T) {
	corpus, err := New().List("x", "a").List("x", "b").Named("x", "X").Corpus()
	require.NoError(t, err)
	assert.Equal(t, domain.List{Name: "X", Options: []string{"a", "b"}}, corpus.Lists["x"])
}

func TestListBuilder_Corpus(t *testing.T) {
	corpus, err := New().Prompt("{#x}").Named("x", "X").Options("a", "b").Corpus()
	require.NoError(t, err)
	assert.Equal(t, []string{"{#x}"}, corpus.Prompts)
	assert.Equal(t, domain.List{Name: "X", Options: []string{"a", "b"}}, corpus.Lists["x"])

	_, err = New().Named("bad|id", "B").Corpus()
	assert.ErrorIs(t, err, ErrInvalidListID)
}

func TestBuilder_CorpusIsACopy(t *testing.T) {
	b := New().Prompt("p").List("x", "a")
	corpus, err := b.Corpus()
	require.NoError(t, err)

	b.List("x", "b").Prompt("q")
	assert.Equal(t, []string{"p"}, corpus.Prompts)
	assert.Equal(t, []string{"a"}, corpus.Lists["x"].Options)
}

func TestBuilder_InvalidIDs(t *testing.T) {
	for _, id := range []string{"", "a|b", "a}", "{a"} {
		_, err := New().List(id, "x").Build()
		assert.ErrorIs(t, err, ErrInvalidListID, "id %q", id)
	}
}
