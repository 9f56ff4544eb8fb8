// Package transport implements the request pipeline every API call flows
// through.
//
// The pipeline attaches the cached anti-forgery token to state-changing
// requests, decodes the API's uniform response envelope, classifies failures
// into the client's error taxonomy, and transparently repairs the two
// recoverable categories: a rejected CSRF token (refetch, resubmit once) and
// an expired access credential (refresh, resubmit once). Repair budgets come
// from the retry package and are cut fresh per logical request; the two
// repairs are mutually exclusive per attempt and never compound.
//
// # Architecture boundaries
//
// The pipeline owns dispatch and failure classification. Token storage lives
// in the csrf package, refresh coalescing in the refresh package, and both
// are reached only through the narrow CSRFSource and Refresher interfaces so
// this package never depends on their wiring.
//
// # What this package must NOT do
//
//   - Retry more than once per failure category per logical request.
//   - Attempt a refresh for requests targeting the refresh, login, or
//     registration endpoints.
//   - Surface a refresh failure in place of the failure that triggered it.
package transport
