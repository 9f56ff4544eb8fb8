// Package authclient manages the lifecycle of an authenticated session
// against the twitter-clone REST API: CSRF token acquisition, transparent
// repair of expired access credentials, multi-step (password + second
// factor) login, and propagation of the resulting auth state to a UI layer.
//
// A [Client] is assembled once through [Builder.Build] and is safe for
// concurrent use. Every API call flows through a single request pipeline
// that attaches the cached anti-forgery token, decodes the API's uniform
// response envelope, and repairs the two recoverable failure categories —
// a rejected CSRF token and an expired access credential — at most once
// each per logical request. UI code observes authentication state through
// the [session.Store] returned by [Client.Session] and never mutates it
// directly.
//
// # Architecture boundaries
//
// authclient is the public surface. It exposes [Client], [Builder],
// [Config], sentinel errors, and value types. Coordination — the request
// pipeline, token cache, refresh coalescing, the login state machine, audit
// dispatch — lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Read or write access credentials. Tokens travel as cookie side
//     effects of API responses; the pipeline's cookie jar is the only
//     credential storage.
//   - Persist session state. A Client's state dies with the process, the
//     way a browser tab's does.
//   - Retry without bound. Each failure category gets at most one automatic
//     repair per logical request, and never for the refresh, login, or
//     registration endpoints.
package authclient
