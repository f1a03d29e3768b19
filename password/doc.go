// Package password implements credential hashing and verification.
//
// # Output formats
//
// Two digest formats are supported, selected by [Config.Algorithm]:
//
//	sha256:   base64(SHA-256(password)) — deterministic, unsalted, fixed length
//	argon2id: $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The sha256 form exists for compatibility with stores populated by the
// original desktop client; argon2id is the hardened option. Verification is
// driven by the stored digest's own format, so a store can hold a mix of
// both during a migration, and [Hasher.NeedsUpgrade] tells the caller when
// to re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy and
// user-store access are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive digests.
//   - Import any other package of this module.
//   - Log plaintext passwords or hash parameters at runtime.
package password
