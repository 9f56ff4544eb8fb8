// Package session owns the tab-wide authentication state observed by the UI
// layer: the current user profile, the authenticated flag, the in-flight
// identity-check flag, and the last surfaced error message.
//
// # Architecture boundaries
//
// The [Store] is the single writer of this state. UI code reads snapshots and
// subscribes to transitions; it never mutates fields directly. Mutation
// methods are invoked by the login flow, the bootstrap sequence, and logout.
//
// # What this package must NOT do
//
//   - Perform network I/O. Identity checks and logout requests belong to the
//     client; the store only records their outcome.
//   - Persist state. The store is in-memory only and dies with the process,
//     matching a browser tab's lifetime.
//   - Import any other package of this module.
package session
