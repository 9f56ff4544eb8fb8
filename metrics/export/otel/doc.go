// Package otel binds client metrics to OpenTelemetry instruments.
//
// [NewExporter] registers an Int64ObservableCounter per client counter and
// Int64ObservableGauge per histogram bucket. A single callback reads
// [authclient.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
