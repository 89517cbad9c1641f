// Package engine implements the threadgate processing pipeline.
//
// The gateway processes each intent through a fixed sequence:
//
//  1. Insert the turn into the ancestry (idempotent, parent-validated)
//  2. Append the INTENT event
//  3. Resolve the ancestor chain and build the context (pure)
//  4. Append the CONTEXT event
//  5. Invoke the decision policy and append the DECISION event,
//     unless a decision for the turn is already durable
//
// # Ordering Model
//
// Appends to one thread's log are serialized: asynchronous submission
// goes through a per-thread FIFO queue drained by a single worker
// goroutine, so a turn's CONTEXT event can never precede its INTENT
// event and DECISION can never precede CONTEXT. Distinct threads
// proceed fully in parallel.
//
// # Failure Scoping
//
// DAG and canonicalization failures abort the intent before any event
// is appended. Policy failures abort only the decision step: the INTENT
// and CONTEXT events stay durable, and a later retry rebuilds the
// identical context (the builder is deterministic) and either claims
// the decision slot or reuses the durable decision. Nothing here is
// globally fatal; every failure is scoped to one intent.
package engine
