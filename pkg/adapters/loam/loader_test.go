package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/reroll/internal/testutils"
	"github.com/aretw0/reroll/pkg/domain"
	contract "github.com/aretw0/reroll/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Contract(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"prompts.md": `---
prompts:
  - "a {#colour} {#animal}"
---
{big|small} {#animal}
`,
		"colour.md": `---
name: Colour
options:
  - red
---
{light|dark} blue
`,
		"animal.md": `cat

dog
`,
	})

	loader := New(loam.NewTypedRepository[ListMetadata](repo))

	contract.CorpusLoaderContractTest(t, loader, domain.Corpus{
		Prompts: []string{"a {#colour} {#animal}", "{big|small} {#animal}"},
		Lists: domain.ListTable{
			"colour": {Name: "Colour", Options: []string{"red", "{light|dark} blue"}},
			"animal": {Options: []string{"cat", "dog"}},
		},
	})
}

func TestLoader_ReadsBodies(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"colour.md":  "red\nblue\n",
		"prompts.md": "a {#colour} cat\n",
	})

	corpus, err := New(loam.NewTypedRepository[ListMetadata](repo)).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a {#colour} cat"}, corpus.Prompts)
	assert.Equal(t, []string{"red", "blue"}, corpus.Lists["colour"].Options)
	assert.NotContains(t, corpus.Lists, PromptsDocument)
}

func TestLoader_NormalizesIDs(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"nested/colour.md": "red\nblue\n",
		"explicit.md": `---
id: renamed.md
---
x
`,
		"shape.json": `{"options": ["square", "circle"]}`,
	})

	corpus, err := New(loam.NewTypedRepository[ListMetadata](repo)).Load(context.Background())
	require.NoError(t, err)

	assert.Contains(t, corpus.Lists, "nested/colour", "subdirectories become part of the id")
	assert.Contains(t, corpus.Lists, "renamed", "frontmatter id wins and loses its extension")
	assert.Equal(t, []string{"square", "circle"}, corpus.Lists["shape"].Options)
	assert.Len(t, corpus.Lists, 3)
}

func TestLoader_DetectsCollisions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)

	testutils.WriteFiles(t, tmpDir, map[string]string{
		"foo.md":   "a\n",
		"foo.json": `{"options": ["b"]}`,
	})

	_, err := New(loam.NewTypedRepository[ListMetadata](repo)).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Contains(t, err.Error(), "foo")
}

func TestBodyLines(t *testing.T) {
	got := bodyLines("  one \n\n// a comment\n\ttwo\n")
	assert.Equal(t, []string{"one", "two"}, got)
	assert.Empty(t, bodyLines(""))
}
