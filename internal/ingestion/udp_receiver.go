package ingestion

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const maxDatagramSize = 64 * 1024

// Receiver is the UDP Receiver (C6). It performs no parsing or store I/O —
// stamping received_at and handing the raw bytes to the queue is the only
// work done on the receive path, which is the central performance decision
// named in spec.md §4.6.
type Receiver struct {
	conn      *net.UDPConn
	queue     *Queue
	shutdown  int32 // atomic bool: 1 once draining has begun
	dropCount int64
}

// NewReceiver binds a UDP socket at addr and returns a Receiver ready to
// run. The caller owns calling Run (typically in its own goroutine) and
// BeginShutdown.
func NewReceiver(addr string, queue *Queue) (*Receiver, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Receiver{conn: conn, queue: queue}, nil
}

// Run reads datagrams until the socket is closed (by BeginShutdown).
// Each datagram is stamped with its receive time and enqueued as raw bytes
// without blocking; when the queue is full the incoming datagram is counted
// and dropped, never fatal to the loop. Decoding and parsing happen later,
// in the batch writer.
func (r *Receiver) Run() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, peer, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if atomic.LoadInt32(&r.shutdown) == 1 {
				return
			}
			log.Warn().Err(err).Msg("ingestion: udp read error")
			continue
		}

		if atomic.LoadInt32(&r.shutdown) == 1 {
			continue
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		d := Datagram{Payload: raw, Peer: peer.IP.String(), ReceivedAt: time.Now().UTC()}
		if !r.queue.TryEnqueue(d) {
			atomic.AddInt64(&r.dropCount, 1)
			log.Warn().Str("peer", peer.String()).Msg("ingestion: queue full, dropping incoming datagram")
		}
	}
}

// BeginShutdown flips the receiver into DRAINING: the socket is closed (so
// Run's blocking read returns) and subsequent reads, if any race in, are
// discarded rather than enqueued.
func (r *Receiver) BeginShutdown() {
	atomic.StoreInt32(&r.shutdown, 1)
	r.conn.Close()
}

// DropCount reports datagrams dropped due to a full queue, for metrics.
func (r *Receiver) DropCount() int64 {
	return atomic.LoadInt64(&r.dropCount)
}

// LocalAddr exposes the bound address, mostly useful in tests that bind to
// port 0.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}
