// Package params provides the in-memory parameter store for Control Loop Core.
//
// A parameter is a named value of one of four primitive kinds: integer,
// float, string or boolean. The Store maps names to values and is accessed
// concurrently from the message dispatch loop (remote reconfiguration) and
// from the hosting application's own goroutines.
//
// # Semantics
//
//   - Get/Set are strict: both fail with ErrNotFound for unknown names.
//     Set never creates entries.
//   - Add fails with ErrAlreadyExists for duplicate names.
//   - Snapshot returns an independent copy, safe to serialize without
//     holding any lock.
//
// The store is in-memory only for the lifetime of the handler; values are
// not persisted across restarts.
package params
