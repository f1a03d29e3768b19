// Package oauth implements the external-provider sign-in flow: provider
// drivers (Google, GitHub, Facebook, LinkedIn, Twitter/X), PKCE material,
// and the loopback redirect listener that captures authorization codes on
// localhost.
//
// # Flow
//
// A [Driver] owns one provider's full interactive flow: build the
// authorization URL, open the system browser, wait on a one-shot
// [Completion] armed on the provider's [Listener], then exchange the
// captured code for tokens and resolve the local user. Every successful
// exchange ends by creating a session; the caller receives a [Result] and
// never a partial state.
//
// # Architecture boundaries
//
// This package resolves provider identities into local users and sessions
// through the user and session store contracts. It does NOT hash
// credentials or run two-factor challenges — those belong to the Engine.
//
// # What this package must NOT do
//
//   - Import the root engine package (no upward imports).
//   - Keep captured codes or tokens beyond the exchange that consumes them.
//   - Share callback state between concurrent attempts; each attempt arms
//     its own completion.
package oauth
