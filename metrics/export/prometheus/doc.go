// Package prometheus renders examclient metrics in the Prometheus text
// exposition format.
//
// [NewExporter] accepts an [examclient.Client] and exposes an [http.Handler].
// Counter names are prefixed examclient_*_total; the single histogram is
// examclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate client state.
package prometheus
