// Package prometheus renders client metrics in Prometheus text exposition
// format.
//
// [NewExporter] accepts a [authclient.Client] and exposes an [net/http.Handler]
// serving every counter and the request-latency histogram. Counter names are
// prefixed authclient_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the
//     Handler.
//   - Mutate client state.
package prometheus
