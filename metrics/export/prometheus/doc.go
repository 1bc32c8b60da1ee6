// Package prometheus provides Prometheus collectors for trackd metrics.
//
// [NewPrometheusExporter] accepts an [trackd.Engine] and exposes an [http.Handler]
// that renders all trackd counters and histograms in Prometheus text exposition format.
// Counter names are prefixed trackd_*_total; the single histogram is
// trackd_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
