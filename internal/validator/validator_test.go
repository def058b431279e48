package validator

import (
	"testing"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(r Report) map[compiler.DiagnosticKind]int {
	out := map[compiler.DiagnosticKind]int{}
	for _, i := range r.Issues {
		out[i.Kind]++
	}
	return out
}

func TestValidate_Clean(t *testing.T) {
	r := Validate(domain.Corpus{
		Prompts: []string{"a {#colour} {#animal}"},
		Lists: domain.ListTable{
			"colour": {Options: []string{"red", "{#shade} blue"}},
			"shade":  {Options: []string{"light", "dark"}},
			"animal": {Options: []string{"cat"}},
		},
	})
	assert.Empty(t, r.Issues, "lists reached through other lists count as used")
	assert.Equal(t, 1, r.Prompts)
	assert.Equal(t, 3, r.Lists)
}

func TestValidate_Problems(t *testing.T) {
	r := Validate(domain.Corpus{
		Prompts: []string{"{#missing} {#none}", "a}b", "a}b"},
		Lists: domain.ListTable{
			"none":   {},
			"orphan": {Options: []string{"x", "x"}},
			"self":   {Options: []string{"{#self}"}},
		},
	})

	assert.Equal(t, map[compiler.DiagnosticKind]int{
		compiler.DiagUnresolved: 1,
		compiler.DiagEmptyList:  1,
		compiler.DiagStrayClose: 1,
		KindDuplicatePrompt:     1,
		KindUnusedList:          2,
		KindDuplicateOption:     1,
	}, kinds(r), "a repeated prompt reports its grammar problems once")
	assert.Equal(t, 2, r.Errors())
	assert.Equal(t, 5, r.Warnings())
}

func TestValidate_SharedListReportedOnce(t *testing.T) {
	r := Validate(domain.Corpus{
		Prompts: []string{"{#colour} cat", "{#colour} dog"},
		Lists:   domain.ListTable{"colour": {Options: []string{"red", "{#shade}"}}},
	})

	require.Len(t, r.Issues, 1)
	assert.Equal(t, compiler.DiagUnresolved, r.Issues[0].Kind)
	assert.Equal(t, "shade", r.Issues[0].ListID)
}

func TestValidate_CycleAndDepth(t *testing.T) {
	r := Validate(domain.Corpus{
		Prompts: []string{"{#a}"},
		Lists: domain.ListTable{
			"a": {Options: []string{"{#b}"}},
			"b": {Options: []string{"{#a}"}},
		},
	})
	assert.Equal(t, 1, kinds(r)[compiler.DiagCycle])
	assert.Equal(t, 1, r.Errors())

	r = Validate(domain.Corpus{
		Prompts: []string{"{#a}"},
		Lists: domain.ListTable{
			"a": {Options: []string{"{#b}"}},
			"b": {Options: []string{"b"}},
		},
	}, compiler.WithMaxDepth(1))
	assert.Equal(t, 1, kinds(r)[compiler.DiagTooDeep])
}

func TestValidate_NoPrompts(t *testing.T) {
	r := Validate(domain.Corpus{})
	require.Len(t, r.Issues, 1)
	assert.Equal(t, KindNoPrompts, r.Issues[0].Kind)
	assert.Equal(t, SeverityError, r.Issues[0].Severity)
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityError, SeverityOf(compiler.DiagUnresolved))
	assert.Equal(t, SeverityWarning, SeverityOf(compiler.DiagUnclosed))
}
