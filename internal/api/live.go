package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/syslogpipe/syslogd/internal/websocket"
)

// WebSocketStats returns live-tail subscriber counts.
func WebSocketStats(hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"active_clients": hub.GetConnectedClients(),
			"timestamp":      time.Now().UTC(),
		})
	}
}
