// Package journal is the durable, append-only action log behind the engine.
//
// Every action the engine processes is written as one Entry, whatever its
// outcome: applied (the reducer accepted it), rejected (the reducer returned
// an error) or dropped (the flow ran out of steps). Replaying the applied
// entries in seq order through the same reducer rebuilds the state.
//
// # Ordering
//
// Entries are ordered by the engine's logical clock (seq), never by wall
// time. Every read uses ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - one open connection (SQLite has a single writer)
//
// Payloads are stored as canonical JSON (see ir.MarshalCanonical) so the
// bytes on disk hash the same way on every machine.
package journal
