/*
Package dsl builds reroll corpora in Go instead of JSON, YAML or TOML files.

A fluent builder is handy for generated corpora, tests and embedding reroll
in another program:

	loader, err := dsl.New().
		Prompt("a {#size} {#animal}").
		List("size", "tiny", "huge").
		Named("animal", "Animal").Options("cat", "dog").
		Build()

Build validates identifiers and returns a memory loader ready for
reroll.WithLoader.
*/
package dsl
