// Package store provides SQLite-backed durable storage for threadgate:
// the per-thread turn ancestry (the Turn-DAG) and the append-only event
// log.
//
// Ownership: this package exclusively owns ancestry validity (parent
// existence, per-thread turn uniqueness, the forest invariant) and the
// durable history. Contexts and decisions are computed elsewhere and
// captured here as events; the log is the system of record.
//
// # Invariants
//
// Forest: each turn has at most one parent, the parent must already
// exist in the same thread at insertion time, and insertion is the only
// mutation path - so cycles are structurally impossible.
//
// Idempotent insertion: re-inserting an existing (thread_id, turn_id)
// is a no-op that reports AlreadyExists, supporting safe retries.
//
// Append-only: events are never edited or removed. Per-thread order is
// the monotonic seq column; the caller (engine.Gateway) serializes
// appends per thread so seq order is causal order.
//
// Decision dedup: a partial UNIQUE index allows at most one DECISION
// event per (thread_id, turn_id); AppendDecisionOnce claims the slot
// with ON CONFLICT DO NOTHING and reports whether it won.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - single connection: SQLite has one writer; a 1-connection pool
//     avoids SQLITE_BUSY under concurrent threads
package store
