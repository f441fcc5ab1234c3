/*
Package ports defines the driven ports (interfaces) around the protocol engine.

These interfaces decouple the engine from where protocols come from and where
finished sessions go, so the same engine runs against built-in protocols,
document folders, memory, files, Redis or SQLite.

# Key Interfaces

  - Catalog: resolves protocol IDs to step schemas (built-ins, Loam documents).
  - RecordStore: keeps finalized session records (memory, file, Redis, SQLite).
  - DistributedLocker: serializes record appends across replicas.
  - Watchable: notifies when a catalog's backing documents change.
*/
package ports
