// Package apitest runs an in-process twitter-clone API double for exercising
// the client end to end: real cookies, real signed tokens, real TOTP windows,
// and the uniform response envelope, plus failure-injection knobs (CSRF
// rejection, refresh outage, access-token expiry) and per-route request
// counters so tests can assert how many times a path was actually hit.
//
// # Architecture boundaries
//
// This package depends only on the standard library and its crypto and
// routing dependencies. It must stay importable by any _test.go file in the
// module without pulling client code in.
//
// # What this package must NOT do
//
//   - import the root package or any other internal package
//   - persist anything; every Server starts empty and dies with its test
//   - be reachable from production builds (nothing outside _test.go files
//     may import it)
package apitest
