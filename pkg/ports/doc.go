/*
Package ports defines the driven ports (interfaces) of the reroll host layer.

These interfaces decouple the engine and the history manager from concrete
storage and corpus sources, so the same core runs from a JSON file, a Loam
directory, or an in-memory corpus, and records history in memory, on disk,
in Redis or in SQLite.

# Key Interfaces

  - CorpusLoader: supplies the raw templates and the list table.
  - Watchable: notifies when a corpus source changes (hot reload).
  - HistoryStore: persists the generation history of each session.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
