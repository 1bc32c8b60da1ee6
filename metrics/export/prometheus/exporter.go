package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() trackd.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders engine metrics in Prometheus text exposition
// format. It holds no state of its own: every scrape reads a fresh snapshot
// from the source.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates an exporter backed by the given [trackd.Engine].
func NewPrometheusExporter(engine *trackd.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

// NewPrometheusExporterFromSource creates an exporter backed by a custom
// metrics source, mainly for tests.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler suitable for mounting at /metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition text. A completely idle engine
// renders as the empty string so a disabled metrics setup costs nothing.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		emitCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	for _, def := range internaldefs.HistogramDefs {
		perBucket := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		emitHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(perBucket))
	}

	emitCounter(&b, "trackd_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", dropped)

	return b.String()
}

func emitHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, escapeHelp(help))
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
}

func emitCounter(b *strings.Builder, name, help string, value uint64) {
	emitHeader(b, name, help, "counter")
	fmt.Fprintf(b, "%s %d\n", name, value)
}

func emitHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	emitHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}

	// _count equals the +Inf bucket. The core snapshot does not track a
	// running sum, so _sum is pinned to zero to keep the series well formed.
	fmt.Fprintf(b, "%s_count %d\n", name, cumulative[len(cumulative)-1])
	fmt.Fprintf(b, "%s_sum 0\n", name)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
