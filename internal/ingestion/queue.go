// Package ingestion implements the UDP receive path: a bounded in-memory
// queue, the non-blocking receiver that feeds it (C6), the batch writer
// that drains it into SQLite partitions (C5), and the shutdown state
// machine that coordinates the two (C7).
package ingestion

import "time"

// Datagram is the unparsed unit handed from the UDP Receiver to the Batch
// Writer — spec.md §4.6 is explicit that the socket handler performs no
// parsing, so the queue carries raw bytes, not records.
type Datagram struct {
	Payload    []byte
	Peer       string
	ReceivedAt time.Time
}

// Queue is a bounded, non-blocking handoff between the UDP receiver and
// the batch writer. spec.md §4.6's resolved Open Question: when full, the
// newly-arrived datagram is dropped, not the oldest queued one — this
// keeps the receive path O(1) and lock-free-on-the-happy-path, at the cost
// of losing the newest record under sustained overload rather than an
// older one already waiting to be persisted.
type Queue struct {
	ch chan Datagram
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Datagram, capacity)}
}

// TryEnqueue attempts a non-blocking send. It returns false if the queue
// is full, in which case the caller must count the drop and discard the
// datagram — it must never block the receive loop.
func (q *Queue) TryEnqueue(d Datagram) bool {
	select {
	case q.ch <- d:
		return true
	default:
		return false
	}
}

// Chan exposes the receive side for the batch writer's select loop.
func (q *Queue) Chan() <-chan Datagram {
	return q.ch
}

// Len reports the number of datagrams currently queued, for health checks
// and metrics.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap reports the queue's fixed capacity, for health checks and metrics
// that report depth as a fraction of capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
