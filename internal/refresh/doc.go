// Package refresh coordinates access-credential renewal.
//
// The coordinator issues the refresh call through the pipeline's plain path
// and coalesces concurrent callers onto one in-flight refresh: when several
// requests hit an expired credential at once, a single network exchange runs
// and every waiter observes its result. The renewed credential travels as a
// cookie side effect of the response; no token is read or written by client
// code.
package refresh
