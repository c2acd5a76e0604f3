/*
Package ports defines the driven ports (interfaces) for the Treb framework.

These interfaces decouple the core request pipeline and the record layer from
external implementations, allowing the framework to work with various cache
backends and database pools.

# Key Interfaces

  - Cache: read/write/delete of opaque values with TTLs.
  - Locker: advisory, best-effort distributed locking.
  - Pools: named database connection pools.
*/
package ports
