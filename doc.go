/*
Package reroll generates text prompts from a small template grammar and lets
a user change one fragment of a generated prompt without touching the rest.

# Concept

A template is literal text with brace groups. Every group is a fragment that
is drawn at random when the prompt is generated:

	a {red|blue} {?very }{#animal}

  - {a|b|c} picks one alternative.
  - {?x} is optional: either nothing or x.
  - {#id} picks one option of the list id from the corpus list table.

Every option of every fragment is materialized when a prompt is generated, so
switching a fragment later (an override) never draws new text elsewhere. An
override always returns a new prompt; the original is never modified.

Malformed templates never fail: unknown lists render as "{NOT FOUND id}",
cyclic references as "{CYCLE id}", and every recovered problem is reported as
a diagnostic.

# Usage

Initialize the engine from a JSON, YAML or TOML corpus file, a Loam directory
of lists, or an in-memory corpus.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/reroll"
	)

	func main() {
		eng, err := reroll.New("./prompts.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		p, err := eng.Generate(ctx)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(eng.Compile(p))

		// Pick another option for the first overridable fragment.
		for _, f := range eng.Fragments(p) {
			alt := f.Alternatives[0]
			p2, err := eng.Override(ctx, p, f.ID, alt.Index)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(eng.Compile(p2))
			break
		}
	}

Session history, persistence and the HTTP and MCP surfaces live in
pkg/session and pkg/adapters.
*/
package reroll
