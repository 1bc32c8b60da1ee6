// Package internaldefs holds the metric names, help strings and histogram
// bucket bounds shared by the Prometheus and OTel exporters. Keeping them in
// one table means the two exporters can never drift apart on naming: a
// trackd_order_created_total counter scraped from /metrics is the same
// series an OTel pipeline sees.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
