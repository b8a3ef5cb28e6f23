// Package prometheus provides Prometheus collectors for staffauth metrics.
//
// [NewPrometheusExporter] accepts a [staffauth.Engine] and exposes an [http.Handler]
// that renders all staffauth counters and histograms in Prometheus text exposition
// format. Counter names are prefixed staffauth_*_total; the single histogram is
// staffauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
