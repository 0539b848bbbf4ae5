// Package internaldefs holds the metric names and bucket boundaries shared by
// the exporters.
//
// The Prometheus and OTel exporters both read these definitions, so a rename
// here changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
