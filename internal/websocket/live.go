package websocket

import "github.com/syslogpipe/syslogd/internal/models"

// FlushNotifier implements ingestion.FlushListener and turns each
// successful batch-writer commit into a live-tail broadcast. It is
// registered with the writer once at startup (Writer.AddListener) and is
// never itself a consumer of the ingest queue.
type FlushNotifier struct {
	hub *Hub
}

// NewFlushNotifier binds a notifier to the hub it broadcasts through.
func NewFlushNotifier(hub *Hub) *FlushNotifier {
	return &FlushNotifier{hub: hub}
}

// OnFlush is called by the batch writer immediately after a partition
// group's transaction commits.
func (n *FlushNotifier) OnFlush(ym string, records []*models.Record) {
	if n.hub.GetConnectedClients() == 0 {
		return
	}
	n.hub.BroadcastRecords(ym, records)
}
