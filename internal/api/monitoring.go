package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/syslogpipe/syslogd/internal/monitoring"
)

// GetMetrics returns current system metrics as JSON.
func GetMetrics(collector *monitoring.MetricsCollector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := collector.GetMetrics()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"metrics":   metrics,
			"timestamp": time.Now().UTC(),
		})
	}
}

// PrometheusMetrics exposes the collector in Prometheus text exposition
// format for scraping.
func PrometheusMetrics(exporter *monitoring.PrometheusExporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if err := exporter.Export(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// GetAlerts returns all alerts, active and resolved.
func GetAlerts(manager *monitoring.AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts := manager.GetAllAlerts()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"alerts": alerts,
			"total":  len(alerts),
		})
	}
}

// GetActiveAlerts returns only currently active alerts.
func GetActiveAlerts(manager *monitoring.AlertManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alerts := manager.GetActiveAlerts()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"alerts":       alerts,
			"active_count": len(alerts),
		})
	}
}
