package monitoring

import "github.com/syslogpipe/syslogd/internal/models"

// IngestMetricsListener implements ingestion.FlushListener, turning every
// successful batch-writer commit into an ingestion-volume metric. Registered
// the same way internal/websocket.FlushNotifier is: via Writer.AddListener,
// never as a second consumer of the ingest queue.
type IngestMetricsListener struct {
	metrics *MetricsCollector
}

// NewIngestMetricsListener binds a listener to the collector it reports
// into.
func NewIngestMetricsListener(metrics *MetricsCollector) *IngestMetricsListener {
	return &IngestMetricsListener{metrics: metrics}
}

func (l *IngestMetricsListener) OnFlush(ym string, records []*models.Record) {
	l.metrics.RecordIngestion(len(records))
}
