// Package dag provides the foundational types for threadgate.
//
// This package contains the canonical value model, canonical JSON
// serialization, content-address digesting, and the core record types
// (Intent, Envelope, Turn, Event, Context). All other internal packages
// import dag; dag imports nothing internal. This keeps the deterministic
// core free of circular dependencies.
//
// DETERMINISM CONTRACT:
//
// The same logical value always canonicalizes to the same bytes, and the
// same bytes always digest to the same tagged string. Every digest in the
// system (context_digest, decision_digest) is derived exclusively through
// MarshalCanonical + DigestBytes, which is what makes replay, caching,
// and audit of the event log trustworthy.
package dag
