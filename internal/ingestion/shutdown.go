package ingestion

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// State is one of the three stages of the Shutdown Coordinator (C7).
type State int

const (
	Running State = iota
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Draining:
		return "DRAINING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Coordinator drives the RUNNING → DRAINING → CLOSED state machine from
// spec.md §4.7: it stops the receiver from accepting new datagrams, waits
// for the writer to drain and perform its final flush, then closes the
// store handle. It completes deterministically on SIGINT and SIGTERM.
type Coordinator struct {
	mu       sync.Mutex
	state    State
	receiver *Receiver
	writer   *Writer
	closeDB  func() error
}

// NewCoordinator binds a Coordinator to the receiver and writer it will
// shut down, and the function that closes the store handle.
func NewCoordinator(receiver *Receiver, writer *Writer, closeDB func() error) *Coordinator {
	return &Coordinator{state: Running, receiver: receiver, writer: writer, closeDB: closeDB}
}

// State returns the coordinator's current stage.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitForSignal blocks until SIGINT or SIGTERM arrives, then runs Shutdown.
// Intended to be called from main's goroutine.
func (c *Coordinator) WaitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("ingestion: shutdown signal received")
	c.Shutdown()
}

// Shutdown drives RUNNING → DRAINING → CLOSED deterministically: stop the
// receiver, request the writer stop once drained, wait for it, then close
// the store.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	c.state = Draining
	c.mu.Unlock()

	c.receiver.BeginShutdown()
	c.writer.RequestShutdown()

	<-c.writer.Done()

	if err := c.closeDB(); err != nil {
		log.Error().Err(err).Msg("ingestion: error closing store on shutdown")
	}

	c.mu.Lock()
	c.state = Closed
	c.mu.Unlock()
	log.Info().Msg("ingestion: shutdown complete")
}
