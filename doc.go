// Package drinkauth provides an embeddable authentication engine with
// password login, multi-provider OAuth sign-in with PKCE and a loopback
// redirect listener, Redis-backed sessions, and confirm-before-commit
// TOTP two-factor enrollment.
//
// The package is designed for concurrent workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// The Engine orchestrates; it owns no persistence. User records live
// behind the user.Store contract the host supplies, sessions behind
// session.Store (a Redis reference store is provided), and provider
// flows behind the [OAuthDriver] contract. Authentication outcomes are
// explicit [AuthResult] values — there is no process-global current
// session.
//
// # What this package must NOT do
//
//   - Render UI or manage navigation; hosts own the consent window.
//   - Persist provider tokens beyond the result that carries them.
//   - Report distinct "user unknown" vs "password mismatch" outcomes
//     to callers; both surface as an unsuccessful result.
package drinkauth
