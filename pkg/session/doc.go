/*
Package session records generated prompts as per-session history.

A Manager sits between an engine (ports.Generator) and a ports.HistoryStore.
Every action appends a new entry: history is append-only, so revisiting or
overriding an old prompt never changes what was recorded before. Access to a
session is serialized in-process and, when a DistributedLocker is configured,
across replicas sharing one store.
*/
package session
