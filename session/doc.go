// Package session provides the session model, the storage contract the
// authentication engine consumes, and a Redis-backed reference store.
//
// # Binary encoding
//
// [RedisStore] persists sessions as a compact fixed-size binary record
// (version byte, session id, user id, timestamps). The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Architecture boundaries
//
// This package owns the [Session] model and [Store] contract. It does NOT
// hash credentials, talk to OAuth providers, or enforce authentication
// policy — those responsibilities belong to the Engine.
//
// # What this package must NOT do
//
//   - Import the root engine package or oauth (no upward imports).
//   - Keep a process-global "current session"; sessions are explicit values.
//   - Store plaintext secrets in [Session] fields.
package session
