package tests

import (
	"context"
	"testing"

	"github.com/aretw0/reroll/pkg/domain"
	"github.com/aretw0/reroll/pkg/ports"
)

// CorpusLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.CorpusLoader.
func CorpusLoaderContractTest(t *testing.T, loader ports.CorpusLoader, want domain.Corpus) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_Prompts", func(t *testing.T) {
		got, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading corpus: %v", err)
		}
		if len(got.Prompts) != len(want.Prompts) {
			t.Fatalf("expected %d prompts, got %d (%q)", len(want.Prompts), len(got.Prompts), got.Prompts)
		}
		lookup := make(map[string]bool)
		for _, p := range got.Prompts {
			lookup[p] = true
		}
		for _, p := range want.Prompts {
			if !lookup[p] {
				t.Errorf("prompt %q missing from corpus", p)
			}
		}
	})

	t.Run("Load_Lists", func(t *testing.T) {
		got, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading corpus: %v", err)
		}
		if len(got.Lists) != len(want.Lists) {
			t.Errorf("expected %d lists, got %d", len(want.Lists), len(got.Lists))
		}
		for id, wantList := range want.Lists {
			gotList, ok := got.Lists[id]
			if !ok {
				t.Errorf("list %s missing from corpus", id)
				continue
			}
			if gotList.Name != wantList.Name {
				t.Errorf("list %s name mismatch. got %q, want %q", id, gotList.Name, wantList.Name)
			}
			if len(gotList.Options) != len(wantList.Options) {
				t.Errorf("list %s has %d options, want %d", id, len(gotList.Options), len(wantList.Options))
				continue
			}
			for i := range wantList.Options {
				if gotList.Options[i] != wantList.Options[i] {
					t.Errorf("list %s option %d mismatch. got %q, want %q", id, i, gotList.Options[i], wantList.Options[i])
				}
			}
		}
	})

	t.Run("Load_ReturnsIndependentCopies", func(t *testing.T) {
		first, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading corpus: %v", err)
		}
		if len(first.Prompts) > 0 {
			first.Prompts[0] = "mutated"
		}
		for id := range first.Lists {
			delete(first.Lists, id)
		}

		second, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading corpus: %v", err)
		}
		if len(want.Prompts) > 0 && len(second.Prompts) > 0 && second.Prompts[0] == "mutated" {
			t.Error("mutating a loaded corpus leaked into the loader")
		}
		if len(second.Lists) != len(want.Lists) {
			t.Error("mutating a loaded list table leaked into the loader")
		}
	})
}
