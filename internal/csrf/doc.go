// Package csrf caches the single anti-forgery token attached to
// state-changing requests.
//
// The cache holds exactly one process-wide token with no client-side expiry.
// Rotation is reactive: the request pipeline refetches when the server
// rejects the current token. Fetch failures are swallowed after logging so
// application startup never blocks on the token endpoint; the eventual
// state-changing request fails with a typed error instead.
package csrf
