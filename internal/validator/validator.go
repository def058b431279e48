// Package validator checks a corpus for problems the parser recovers from
// silently, and for lists nothing can reach.
package validator

import (
	"fmt"
	"sort"

	"github.com/aretw0/reroll/internal/compiler"
	"github.com/aretw0/reroll/pkg/domain"
)

// Severity ranks an issue.
type Severity string

const (
	// SeverityError marks issues that show up as placeholders in generated text.
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue kinds beyond the parser's diagnostics.
const (
	KindUnusedList      compiler.DiagnosticKind = "unused_list"
	KindDuplicateOption compiler.DiagnosticKind = "duplicate_option"
	KindDuplicatePrompt compiler.DiagnosticKind = "duplicate_prompt"
	KindNoPrompts       compiler.DiagnosticKind = "no_prompts"
)

// Issue is one finding.
type Issue struct {
	Severity Severity                `json:"severity"`
	Kind     compiler.DiagnosticKind `json:"kind"`
	ListID   string                  `json:"list_id,omitempty"`
	Message  string                  `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Severity, i.Message)
}

// Report collects the issues of one corpus.
type Report struct {
	Prompts int     `json:"prompts"`
	Lists   int     `json:"lists"`
	Issues  []Issue `json:"issues"`
}

// Errors counts issues of SeverityError.
func (r Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts issues of SeverityWarning.
func (r Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Validate parses every prompt of corpus and reports what it finds.
// Lists are reachable when a prompt references them directly or through
// other lists; unreachable ones are reported as unused.
func Validate(corpus domain.Corpus, opts ...compiler.Option) Report {
	reached := make(map[string]bool)
	resolve := func(id string) (domain.List, bool) {
		reached[id] = true
		return corpus.Lists.Lookup(id)
	}

	parser := compiler.NewParser(resolve, opts...)
	parser.ParseAll(corpus.Prompts)

	report := Report{Prompts: len(corpus.Prompts), Lists: len(corpus.Lists)}
	if len(corpus.Prompts) == 0 {
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityError,
			Kind:     KindNoPrompts,
			Message:  "corpus has no prompts",
		})
	}
	reported := make(map[compiler.Diagnostic]bool)
	for _, d := range parser.Diagnostics() {
		if reported[d] {
			continue
		}
		reported[d] = true
		report.Issues = append(report.Issues, Issue{
			Severity: SeverityOf(d.Kind),
			Kind:     d.Kind,
			ListID:   d.ListID,
			Message:  d.String(),
		})
	}

	seen := make(map[string]bool, len(corpus.Prompts))
	for _, p := range corpus.Prompts {
		if seen[p] {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarning,
				Kind:     KindDuplicatePrompt,
				Message:  fmt.Sprintf("prompt %q appears more than once", p),
			})
		}
		seen[p] = true
	}

	for _, id := range sortedIDs(corpus.Lists) {
		if !reached[id] {
			report.Issues = append(report.Issues, Issue{
				Severity: SeverityWarning,
				Kind:     KindUnusedList,
				ListID:   id,
				Message:  fmt.Sprintf("list %q is never referenced", id),
			})
		}
		options := make(map[string]bool)
		for _, opt := range corpus.Lists[id].Options {
			if options[opt] {
				report.Issues = append(report.Issues, Issue{
					Severity: SeverityWarning,
					Kind:     KindDuplicateOption,
					ListID:   id,
					Message:  fmt.Sprintf("list %q repeats option %q", id, opt),
				})
			}
			options[opt] = true
		}
	}
	return report
}

// SeverityOf classifies a parser diagnostic: anything that leaves a visible
// placeholder in generated text is an error.
func SeverityOf(kind compiler.DiagnosticKind) Severity {
	switch kind {
	case compiler.DiagUnresolved, compiler.DiagEmptyList, compiler.DiagCycle, compiler.DiagTooDeep:
		return SeverityError
	}
	return SeverityWarning
}

func sortedIDs(t domain.ListTable) []string {
	ids := make([]string, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
