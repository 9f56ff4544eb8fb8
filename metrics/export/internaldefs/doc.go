// Package internaldefs exposes stable metric name and bucket definitions
// shared by exporter implementations.
//
// Counter and histogram definitions live here so the Prometheus and OTel
// exporters emit identical names and boundaries. Changing a definition here
// changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import the root package or any exporter package.
//   - Perform I/O.
package internaldefs
