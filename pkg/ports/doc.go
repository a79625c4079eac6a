/*
Package ports defines the driven ports (interfaces) of the lemon core.

These interfaces decouple session logic from concrete backends, so the same
SessionStore semantics run over memory, Redis, SQLite or plain files.

# Key Interfaces

  - Storage: Session-scoped key/value text storage (the server-side twin of a browser tab's sessionStorage).
  - DistributedLocker: Serializes read-modify-write sequences on a session across replicas.
*/
package ports
