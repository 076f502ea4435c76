// Package websocket fans out newly-committed records to connected
// operator sockets. It is fed push-style by the batch writer's
// FlushListener hook (see live.go) and is never a second consumer of the
// ingest queue (SPEC_FULL.md §6.7).
package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/syslogpipe/syslogd/internal/models"
)

// Message is the envelope written to every connected socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// RecordBatch is the payload of a "records" message: all records committed
// to a single partition in one flush.
type RecordBatch struct {
	Partition string           `json:"partition"`
	Records   []*models.Record `json:"records"`
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Msg("websocket: client connected")

			welcome := Message{Type: "connection", Data: map[string]string{"status": "connected"}}
			if msg, err := json.Marshal(welcome); err == nil {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Info().Str("client_id", client.id).Msg("websocket: client disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if client.isPaused {
					continue
				}
				select {
				case client.send <- message:
				default:
					log.Warn().Str("client_id", client.id).Msg("websocket: send buffer full, dropping client")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastRecords sends every record committed in one partition flush to
// all connected, non-paused clients. Called from OnFlush (live.go); it must
// never block the batch writer, so a full hub broadcast channel drops the
// batch rather than waiting.
func (h *Hub) BroadcastRecords(ym string, records []*models.Record) {
	message := Message{Type: "records", Data: RecordBatch{Partition: ym, Records: records}}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("websocket: failed to marshal record batch")
		return
	}

	select {
	case h.broadcast <- msgBytes:
	default:
		log.Warn().Str("partition", ym).Msg("websocket: broadcast channel full, dropping batch for live tail")
	}
}

// GetConnectedClients returns the number of connected clients.
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
