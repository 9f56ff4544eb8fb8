// Package audit provides asynchronous audit dispatch for the auth client.
//
// Events record what the client did against the API (bootstrap, token
// fetches, login steps, repairs, logout) and are forwarded to a caller-owned
// sink from a single dispatcher goroutine, so sink latency never blocks a
// request path.
//
// # What this package must NOT do
//
//   - Block the caller of Emit. When the buffer is full the event is either
//     dropped (counted) or the caller's context deadline applies.
//   - Import any other package of this module.
package audit
