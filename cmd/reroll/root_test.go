package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/reroll/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t    *testing.T
	base []string
}

func newHarness(t *testing.T, corpus string) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	testutils.WriteFiles(t, dir, map[string]string{"prompts.json": corpus})
	return &harness{t: t, base: []string{
		"--corpus", filepath.Join(dir, "prompts.json"),
		"--store-path", filepath.Join(dir, "history"),
		"--log-level", "error",
		"--seed", "5",
	}}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, h.base...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

const colourCorpus = `{"prompts": ["a {#colour} cat"], "lists": {"colour": ["red", "blue", "green"]}}`

func TestGenerate(t *testing.T) {
	h := newHarness(t, colourCorpus)

	out := h.mustRun("generate", "--count", "3")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Contains(t, []string{"A red cat", "A blue cat", "A green cat"}, line)
	}

	_, err := h.run("generate", "--count", "0")
	assert.Error(t, err)
	_, err = h.run("generate", "--template", "9")
	assert.Error(t, err)
}

func TestGenerate_JSON(t *testing.T) {
	h := newHarness(t, colourCorpus)

	var view entryView
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("generate", "--json")), &view))
	assert.Equal(t, "default", view.SessionID)
	assert.Equal(t, "a {#colour} cat", view.Template)
	require.Len(t, view.Fragments, 1)
	assert.Equal(t, "colour", view.Fragments[0].Name)
	assert.Len(t, view.Fragments[0].Alternatives, 3)
}

func TestOverrideFlow(t *testing.T) {
	h := newHarness(t, colourCorpus)

	var first entryView
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("generate", "--json")), &first))

	// Alternatives are sorted by text: blue, green, red.
	out := h.mustRun("fragments")
	assert.Contains(t, out, "0 colour:")
	assert.Contains(t, out, "0 red")

	out = h.mustRun("override", first.ID, "0", "1")
	assert.Equal(t, "A blue cat\n", out)

	out = h.mustRun("history", "show")
	assert.Contains(t, out, "Parent:   "+first.ID)
	assert.Contains(t, out, "Text:     A blue cat")
}

func TestOverrideFlow_History(t *testing.T) {
	h := newHarness(t, colourCorpus)
	h.mustRun("generate")
	h.mustRun("override", "latest", "0", "2")

	out := h.mustRun("history", "ls")
	assert.Contains(t, out, "override")
	assert.Contains(t, out, "generate")
	assert.Contains(t, out, "A green cat")

	out = h.mustRun("history", "show", "--yaml")
	assert.Contains(t, out, "action: override")
	assert.Contains(t, out, "text: a green cat")

	out = h.mustRun("revisit")
	assert.Equal(t, "A green cat\n", out)

	out = h.mustRun("history", "sessions")
	assert.Equal(t, "default\n", out)

	h.mustRun("history", "rm")
	out = h.mustRun("history", "ls")
	assert.Equal(t, "No history.\n", out)
}

func TestOverride_Errors(t *testing.T) {
	h := newHarness(t, colourCorpus)
	h.mustRun("generate")

	_, err := h.run("override", "latest", "x", "1")
	assert.Error(t, err)
	_, err = h.run("override", "latest", "0", "9")
	assert.Error(t, err)
	_, err = h.run("override", "nope", "0", "1")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	h := newHarness(t, colourCorpus)
	out := h.mustRun("validate")
	assert.Contains(t, out, "Corpus is valid: 1 templates, 1 lists, 0 warnings.")

	h = newHarness(t, `{"prompts": ["a {#missing} cat", "b}"]}`)
	out, err := h.run("validate")
	assert.Error(t, err)
	assert.Contains(t, out, "unresolved_list")

	h = newHarness(t, `{"prompts": ["b}"]}`)
	h.mustRun("validate")
	_, err = h.run("validate", "--strict")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	h := newHarness(t, colourCorpus)
	h.mustRun("generate")

	out := h.mustRun("inspect")
	assert.Contains(t, out, "## 0. colour")

	out = h.mustRun("inspect", "--mermaid", "--fragment", "0")
	assert.True(t, strings.HasPrefix(out, "graph"), out)

	out = h.mustRun("inspect", "--templates")
	assert.Contains(t, out, "a {#colour} cat")
}

func TestPlay_Headless(t *testing.T) {
	h := newHarness(t, colourCorpus)
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("0 2\nq\n"))
	cmd.SetArgs(append([]string{"play", "--headless"}, h.base...))
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "A green cat")
}

func TestVersion(t *testing.T) {
	h := newHarness(t, colourCorpus)
	out := h.mustRun("version")
	assert.True(t, strings.HasPrefix(out, "reroll version "))
}

func TestConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	testutils.WriteFiles(t, dir, map[string]string{
		"prompts.json": `{"prompts": ["from file"]}`,
		"reroll.yaml":  "corpus: prompts.json\nstore: memory\nlog_level: error\n",
	})

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "From file\n", out.String())

	t.Setenv("REROLL_STORE", "floppy")
	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate"})
	assert.Error(t, cmd.Execute())
}
