package monitoring

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// PrometheusExporter exports metrics in Prometheus format
type PrometheusExporter struct {
	metrics *MetricsCollector
	mu      sync.RWMutex
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(metrics *MetricsCollector) *PrometheusExporter {
	return &PrometheusExporter{
		metrics: metrics,
	}
}

// Export writes metrics in Prometheus exposition format
func (p *PrometheusExporter) Export(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	metricsData := p.metrics.GetMetrics()

	metricGroups := make(map[string][]Metric)
	for _, metric := range metricsData {
		baseName := getBaseMetricName(metric.Name)
		metricGroups[baseName] = append(metricGroups[baseName], metric)
	}

	var metricNames []string
	for name := range metricGroups {
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)

	for _, baseName := range metricNames {
		metrics := metricGroups[baseName]
		if len(metrics) == 0 {
			continue
		}

		metric := metrics[0]
		prometheusName := toPrometheusName(baseName)

		help := getMetricHelp(baseName)
		fmt.Fprintf(w, "# HELP %s %s\n", prometheusName, help)

		metricType := getPrometheusType(metric.Type)
		fmt.Fprintf(w, "# TYPE %s %s\n", prometheusName, metricType)

		for _, m := range metrics {
			writeMetricValue(w, prometheusName, m)
		}
		fmt.Fprintln(w)
	}

	writeProcessMetrics(w)

	return nil
}

// getBaseMetricName extracts the base metric name without suffixes
func getBaseMetricName(name string) string {
	suffixes := []string{"_total", "_seconds", "_bytes", "_count", "_sum", "_bucket"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// toPrometheusName converts metric name to Prometheus format
func toPrometheusName(name string) string {
	name = "syslogd_" + name
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ToLower(name)
	return name
}

// getPrometheusType maps internal metric type to Prometheus type
func getPrometheusType(metricType string) string {
	switch metricType {
	case "counter":
		return "counter"
	case "gauge":
		return "gauge"
	default:
		return "untyped"
	}
}

// getMetricHelp returns help text for metrics
func getMetricHelp(name string) string {
	helpTexts := map[string]string{
		"total_logs_ingested":       "Total number of syslog records committed to a partition",
		"total_queries_executed":    "Total number of search requests executed",
		"ingestion_rate_per_second": "Current rate of record ingestion per second",
		"query_rate_per_second":     "Current rate of search requests per second",
		"drop_rate_per_second":      "5-minute average rate of datagrams dropped by the UDP receiver",
		"query_duration_ms":         "Search request duration in milliseconds",
		"queue_depth":               "Current depth of the ingest queue",
		"queue_capacity":            "Configured capacity of the ingest queue",
		"datagrams_dropped":         "Total number of datagrams dropped because the ingest queue was full",
		"websocket_connections":     "Current number of live-tail WebSocket subscribers",
		"active_alerts":             "Number of currently active alerts",
		"batch_write_duration_ms":   "Duration of batch flush operations in milliseconds",
		"failed_ingestions":         "Total number of datagrams that failed to parse",
		"failed_queries":            "Total number of search requests that returned an error",
	}

	if help, ok := helpTexts[name]; ok {
		return help
	}
	return fmt.Sprintf("Metric %s", name)
}

// writeMetricValue writes a single metric value in Prometheus format
func writeMetricValue(w io.Writer, name string, metric Metric) {
	labels := buildLabels(metric.Labels)

	switch {
	case strings.HasSuffix(metric.Name, "_p50") || strings.HasSuffix(metric.Name, "_p95") || strings.HasSuffix(metric.Name, "_p99"):
		quantile := getQuantileFromName(metric.Name)
		fmt.Fprintf(w, "%s{%squantile=\"%s\"} %g\n", name, labels, quantile, metric.Value)
	case strings.HasSuffix(metric.Name, "_avg"):
		fmt.Fprintf(w, "%s_avg%s %g\n", name, formatLabels(labels), metric.Value)
	case metric.Type == string(MetricTypeCounter):
		if !strings.HasSuffix(name, "_total") {
			name += "_total"
		}
		fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(labels), metric.Value)
	default:
		fmt.Fprintf(w, "%s%s %g\n", name, formatLabels(labels), metric.Value)
	}
}

// getQuantileFromName extracts the Prometheus quantile label value from a
// histogram stat suffix (_p50/_p95/_p99).
func getQuantileFromName(name string) string {
	switch {
	case strings.HasSuffix(name, "_p50"):
		return "0.5"
	case strings.HasSuffix(name, "_p95"):
		return "0.95"
	case strings.HasSuffix(name, "_p99"):
		return "0.99"
	}
	return ""
}

// buildLabels constructs label string from map
func buildLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	var parts []string
	for k, v := range labels {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		v = strings.ReplaceAll(v, "\n", `\n`)
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// formatLabels formats labels for output
func formatLabels(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

// writeProcessMetrics writes the process/runtime gauges read from the real
// Go runtime on every scrape: goroutine count, heap allocation, bytes
// obtained from the OS, the last GC pause and the Go version. Resident
// memory, CPU time and open file descriptors are not exported.
func writeProcessMetrics(w io.Writer) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	fmt.Fprintln(w, "# HELP go_goroutines Number of goroutines that currently exist.")
	fmt.Fprintln(w, "# TYPE go_goroutines gauge")
	fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_memstats_alloc_bytes Number of bytes allocated and still in use.")
	fmt.Fprintln(w, "# TYPE go_memstats_alloc_bytes gauge")
	fmt.Fprintf(w, "go_memstats_alloc_bytes %d\n", m.Alloc)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_memstats_sys_bytes Total bytes of memory obtained from the OS.")
	fmt.Fprintln(w, "# TYPE go_memstats_sys_bytes gauge")
	fmt.Fprintf(w, "go_memstats_sys_bytes %d\n", m.Sys)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_gc_duration_seconds_last Duration of the most recent garbage collection cycle.")
	fmt.Fprintln(w, "# TYPE go_gc_duration_seconds_last gauge")
	fmt.Fprintf(w, "go_gc_duration_seconds_last %g\n", float64(m.PauseNs[(m.NumGC+255)%256])/1e9)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "# HELP go_info Information about the Go environment.")
	fmt.Fprintln(w, "# TYPE go_info gauge")
	fmt.Fprintf(w, "go_info{version=\"%s\"} 1\n", runtime.Version())
}
