/*
Package domain contains the core data model of the reroll engine.

It defines the immutable grammar tree produced by the parser and the mutable,
per-generation instance bound to it. The package is pure: no I/O, no
randomness, no persistence.

# Key Entities

  - Template: the parsed form of one grammar string (Literal and Alternation nodes).
  - Prompt: a resolved instance of a Template with one selection per Alternation.
  - Choice: the instance side of an Alternation, addressed by a pre-order ID.
  - Corpus: the batch of raw templates plus the list table they reference.
  - Entry: one recorded generation in a session history.
*/
package domain
